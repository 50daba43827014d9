package oddsapi

import "strings"

// Fallback catalog of deep-market keys by sport group. The per-sport market
// listing endpoint is authoritative; this mapping lets scans keep running when
// that call fails or quota is tight.

var genericDeepMarkets = []string{
	"alternate_spreads",
	"alternate_totals",
	"team_totals",
}

var deepMarketsByPrefix = map[string][]string{
	"americanfootball": {"player_pass_tds", "player_rush_yds", "player_reception_yds"},
	"basketball":       {"player_points", "player_rebounds", "player_assists", "player_threes"},
	"baseball":         {"batter_home_runs", "pitcher_strikeouts", "batter_total_bases"},
	"icehockey":        {"player_points", "player_shots_on_goal", "player_goal_scorer_anytime"},
	"soccer":           {"btts", "draw_no_bet", "double_chance", "correct_score"},
}

// FallbackDeepMarkets returns the static deep-market keys for a sport.
func FallbackDeepMarkets(sportKey string) []string {
	prefix, _, _ := strings.Cut(sportKey, "_")
	keys := append([]string(nil), genericDeepMarkets...)
	if extra, ok := deepMarketsByPrefix[prefix]; ok {
		keys = append(keys, extra...)
	}
	return keys
}
