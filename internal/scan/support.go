package scan

import (
	"context"
	"sync"

	"github.com/LavaaC/ArbiSport/internal/oddsapi"
)

// supportCache remembers which deep-market keys each sport actually serves.
// The per-sport market listing is fetched once per process; keys the provider
// later rejects are marked unsupported so a bad key cannot fail every cycle.
type supportCache struct {
	mu     sync.Mutex
	listed map[string]map[string]bool // sport -> market -> listed
	banned map[string]map[string]bool // sport -> market -> rejected
}

func newSupportCache() *supportCache {
	return &supportCache{
		listed: make(map[string]map[string]bool),
		banned: make(map[string]map[string]bool),
	}
}

// filter returns the requested markets the sport is believed to support, in
// request order. The market listing is advisory; when it cannot be fetched
// the static fallback catalog decides instead.
func (c *supportCache) filter(ctx context.Context, source OddsSource, sport string, requested []string) []string {
	c.mu.Lock()
	listed, haveListing := c.listed[sport]
	c.mu.Unlock()

	if !haveListing {
		listed = c.loadListing(ctx, source, sport)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range requested {
		if c.banned[sport][m] {
			continue
		}
		if len(listed) > 0 && !listed[m] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// loadListing fetches the sport's market keys, falling back to the static
// catalog when the call fails.
func (c *supportCache) loadListing(ctx context.Context, source OddsSource, sport string) map[string]bool {
	listed := make(map[string]bool)
	keys, _, err := source.Markets(ctx, sport)
	if err != nil || len(keys) == 0 {
		keys = oddsapi.FallbackDeepMarkets(sport)
	}
	for _, k := range keys {
		listed[k] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listed[sport] = listed
	return listed
}

// markUnsupported records markets the provider rejected for a sport.
func (c *supportCache) markUnsupported(sport string, markets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banned[sport] == nil {
		c.banned[sport] = make(map[string]bool, len(markets))
	}
	for _, m := range markets {
		c.banned[sport][m] = true
	}
}
