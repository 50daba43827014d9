package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScanMode selects the scheduling policy for a scan.
type ScanMode string

const (
	ScanModeSnapshot   ScanMode = "snapshot"
	ScanModeContinuous ScanMode = "continuous"
	ScanModeBurst      ScanMode = "burst"
)

// Bankroll holds the staking constraints applied by the solver and allocator.
// Read-only during a cycle.
type Bankroll struct {
	MinEdge         decimal.Decimal // fraction, e.g. 0.01 for 1%
	Total           decimal.Decimal
	Rounding        decimal.Decimal // minimum stake granularity
	MaxStakePerBook decimal.Decimal // zero means unlimited
	MinBookCount    int
}

// ScanSpec is the immutable per-cycle snapshot of a scan configuration. The
// scheduler takes a copy at each cycle boundary; mid-cycle reconfiguration
// never affects an in-flight cycle.
type ScanSpec struct {
	Name       string
	Sports     []string
	Regions    []string
	Bookmakers []string // empty means all
	Markets    []string // primary market keys
	DeepMarkets []string
	// DeepMarketMap overrides DeepMarkets for specific sports.
	DeepMarketMap map[string][]string

	Window   TimeWindow
	Bankroll Bankroll

	Mode          ScanMode
	Interval      time.Duration // base interval, end of cycle to next start
	BurstInterval time.Duration
	BurstWindow   time.Duration

	// TopK bounds the per-outcome candidate list during the solver's
	// combination fallback on deep markets.
	TopK int
}

// MarketAllowed reports whether a market key is in scope, either as a primary
// market or as a deep market for the given sport.
func (s ScanSpec) MarketAllowed(sport, marketKey string) bool {
	for _, m := range s.Markets {
		if m == marketKey {
			return true
		}
	}
	for _, m := range s.DeepMarketsFor(sport) {
		if m == marketKey {
			return true
		}
	}
	return false
}

// DeepMarketsFor returns the deep market keys requested for a sport.
func (s ScanSpec) DeepMarketsFor(sport string) []string {
	if keys, ok := s.DeepMarketMap[sport]; ok {
		return keys
	}
	return s.DeepMarkets
}

// BookmakerAllowed reports whether a bookmaker key is in scope. An empty
// bookmaker list means all bookmakers are accepted.
func (s ScanSpec) BookmakerAllowed(key string) bool {
	if len(s.Bookmakers) == 0 {
		return true
	}
	for _, b := range s.Bookmakers {
		if b == key {
			return true
		}
	}
	return false
}
