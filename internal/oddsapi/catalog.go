package oddsapi

// Static catalog of sports and bookmakers. The live API is authoritative, but
// a baked-in list lets callers populate selections when a sport is out of
// season or a catalog request fails.

// SportInfo describes one Odds API sport key.
type SportInfo struct {
	Key   string
	Title string
	Group string
}

// BookmakerInfo describes one Odds API bookmaker key.
type BookmakerInfo struct {
	Key     string
	Title   string
	Regions []string
	URL     string
}

// Sports lists commonly scanned sports, sorted by group then key.
var Sports = []SportInfo{
	{"americanfootball_ncaaf", "NCAA Football", "American Football"},
	{"americanfootball_nfl", "NFL", "American Football"},
	{"aussierules_afl", "AFL", "Australian Rules"},
	{"baseball_kbo", "KBO", "Baseball"},
	{"baseball_mlb", "MLB", "Baseball"},
	{"baseball_npb", "NPB", "Baseball"},
	{"basketball_euroleague", "EuroLeague", "Basketball"},
	{"basketball_nba", "NBA", "Basketball"},
	{"basketball_ncaab", "NCAA Basketball", "Basketball"},
	{"basketball_wnba", "WNBA", "Basketball"},
	{"boxing_professional", "Professional Boxing", "Fighting"},
	{"mma_mixed_martial_arts", "Mixed Martial Arts", "Fighting"},
	{"cricket_big_bash", "Big Bash League", "Cricket"},
	{"cricket_indian_premier_league", "Indian Premier League", "Cricket"},
	{"cricket_test_match", "Test Matches", "Cricket"},
	{"golf_pga", "PGA Tour", "Golf"},
	{"golf_masters_tournament", "Masters Tournament", "Golf"},
	{"icehockey_nhl", "NHL", "Ice Hockey"},
	{"icehockey_sweden_shl", "SHL", "Ice Hockey"},
	{"motorsport_formula_one", "Formula 1", "Motorsport"},
	{"motorsport_nascar", "NASCAR", "Motorsport"},
	{"rugbyleague_nrl", "NRL", "Rugby League"},
	{"rugbyunion_six_nations", "Six Nations", "Rugby Union"},
	{"soccer_brazil_campeonato", "Brazil Série A", "Soccer"},
	{"soccer_efl_championship", "EFL Championship", "Soccer"},
	{"soccer_epl", "English Premier League", "Soccer"},
	{"soccer_fifa_world_cup", "FIFA World Cup", "Soccer"},
	{"soccer_france_ligue_one", "Ligue 1", "Soccer"},
	{"soccer_germany_bundesliga", "Bundesliga", "Soccer"},
	{"soccer_italy_serie_a", "Serie A", "Soccer"},
	{"soccer_mls", "Major League Soccer", "Soccer"},
	{"soccer_netherlands_eredivisie", "Eredivisie", "Soccer"},
	{"soccer_spain_la_liga", "La Liga", "Soccer"},
	{"soccer_uefa_champions_league", "UEFA Champions League", "Soccer"},
	{"soccer_uefa_europa_league", "UEFA Europa League", "Soccer"},
	{"tennis_atp", "ATP Tour", "Tennis"},
	{"tennis_wta", "WTA Tour", "Tennis"},
}

// Bookmakers lists known bookmaker keys, sorted alphabetically.
var Bookmakers = []BookmakerInfo{
	{"ballybet", "Bally Bet", []string{"us"}, "https://play.ballybet.com"},
	{"bet365", "bet365", []string{"uk", "us", "au", "eu"}, "https://www.bet365.com"},
	{"betfred", "Betfred", []string{"uk", "us"}, "https://www.betfred.com"},
	{"betmgm", "BetMGM", []string{"us"}, "https://sports.betmgm.com"},
	{"betrivers", "BetRivers", []string{"us", "ca"}, "https://www.betrivers.com"},
	{"betsson", "Betsson", []string{"eu"}, "https://www.betsson.com"},
	{"betus", "BetUS", []string{"us"}, "https://www.betus.com.pa"},
	{"bovada", "Bovada", []string{"us"}, "https://www.bovada.lv"},
	{"caesars", "Caesars", []string{"us"}, "https://www.caesars.com/sportsbook"},
	{"circasports", "Circa Sports", []string{"us"}, "https://www.circasports.com"},
	{"cloudbet", "Cloudbet", []string{"uk", "eu"}, "https://www.cloudbet.com"},
	{"coolbet", "Coolbet", []string{"eu"}, "https://www.coolbet.com"},
	{"draftkings", "DraftKings", []string{"us", "ca"}, "https://sportsbook.draftkings.com"},
	{"espnbet", "ESPN BET", []string{"us"}, "https://espnbet.com"},
	{"fanduel", "FanDuel", []string{"us", "uk", "ca"}, "https://sportsbook.fanduel.com"},
	{"ladbrokes_uk", "Ladbrokes", []string{"uk", "au"}, "https://www.ladbrokes.com"},
	{"lowvig", "LowVig", []string{"us"}, "https://www.lowvig.ag"},
	{"neds", "Neds", []string{"au"}, "https://www.neds.com.au"},
	{"pinnacle", "Pinnacle", []string{"uk", "eu"}, "https://www.pinnacle.com"},
	{"pointsbetau", "PointsBet AU", []string{"au"}, "https://pointsbet.com.au"},
	{"sport888", "888sport", []string{"uk", "eu"}, "https://www.888sport.com"},
	{"sugarhouse", "SugarHouse", []string{"us"}, "https://www.playsugarhouse.com"},
	{"superbook", "SuperBook", []string{"us"}, "https://www.superbook.com"},
	{"tab", "TAB", []string{"au"}, "https://www.tab.com.au"},
	{"twinspires", "TwinSpires", []string{"us"}, "https://www.twinspires.com"},
	{"unibet_eu", "Unibet EU", []string{"eu"}, "https://www.unibet.eu"},
	{"unibet_us", "Unibet US", []string{"us"}, "https://www.unibet.com"},
	{"williamhill_uk", "William Hill UK", []string{"uk"}, "https://www.williamhill.com"},
	{"williamhill_us", "William Hill US", []string{"us"}, "https://www.williamhill.us"},
	{"wynnbet", "WynnBET", []string{"us"}, "https://www.wynnbet.com"},
}

var bookmakersByKey = func() map[string]BookmakerInfo {
	m := make(map[string]BookmakerInfo, len(Bookmakers))
	for _, b := range Bookmakers {
		m[b.Key] = b
	}
	return m
}()

// BookmakerByKey looks up catalog info for a bookmaker key.
func BookmakerByKey(key string) (BookmakerInfo, bool) {
	info, ok := bookmakersByKey[key]
	return info, ok
}

// BookmakersForRegions returns bookmakers servicing any of the given regions.
// An empty region set returns the whole catalog.
func BookmakersForRegions(regions []string) []BookmakerInfo {
	if len(regions) == 0 {
		return Bookmakers
	}
	want := make(map[string]bool, len(regions))
	for _, r := range regions {
		want[r] = true
	}
	var out []BookmakerInfo
	for _, b := range Bookmakers {
		for _, r := range b.Regions {
			if want[r] {
				out = append(out, b)
				break
			}
		}
	}
	return out
}
