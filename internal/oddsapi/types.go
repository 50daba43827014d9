package oddsapi

import "time"

// RawOutcome is one priced outcome as returned by the API. Price is American
// odds when the request uses oddsFormat=american.
type RawOutcome struct {
	Name  string   `json:"name"`
	Price int      `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// RawMarket is one market quoted by a bookmaker.
type RawMarket struct {
	Key        string       `json:"key"`
	LastUpdate string       `json:"last_update,omitempty"`
	Outcomes   []RawOutcome `json:"outcomes"`
}

// RawBookmaker groups the markets one bookmaker quotes for an event.
type RawBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate string      `json:"last_update,omitempty"`
	Markets    []RawMarket `json:"markets"`
}

// RawEvent is one event with all bookmaker quotes attached.
type RawEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime string         `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []RawBookmaker `json:"bookmakers"`
}

// rawMarketInfo is an entry of the per-sport market listing endpoint.
type rawMarketInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Usage carries the quota metadata the API reports on every response. Nil
// fields were absent from the headers.
type Usage struct {
	Remaining *int
	ResetAt   *time.Time
}
