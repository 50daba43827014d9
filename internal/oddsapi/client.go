// Package oddsapi is a thin client for The Odds API v4. It keeps HTTP
// handling, failure classification, and quota-header parsing in one place so
// the scan layer can treat the provider as a black box.
package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// DefaultBaseURL is the production Odds API endpoint.
const DefaultBaseURL = "https://api.the-odds-api.com/v4"

const defaultTimeout = 15 * time.Second

// Client talks to The Odds API. Requests are paced by a token-bucket limiter
// so bursts of deep-market fetches cannot hammer the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Config holds client construction parameters.
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// New creates a Client. The API key is required; everything else defaults.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oddsapi: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger.With(slog.String("component", "oddsapi")),
	}, nil
}

// ReqOpts carries the shared query parameters for odds endpoints.
type ReqOpts struct {
	Regions    []string
	Bookmakers []string
	Markets    []string
}

// Odds fetches odds for all events of a sport.
func (c *Client) Odds(ctx context.Context, sportKey string, opts ReqOpts) ([]RawEvent, Usage, error) {
	params := c.oddsParams(opts)
	body, usage, err := c.get(ctx, "/sports/"+sportKey+"/odds", params)
	if err != nil {
		return nil, usage, err
	}
	var events []RawEvent
	if err := json.Unmarshal(body, &events); err != nil {
		// Some responses come back as a single object.
		var single RawEvent
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return nil, usage, &domain.FetchError{Kind: domain.FetchMalformed, Err: err}
		}
		events = []RawEvent{single}
	}
	return events, usage, nil
}

// EventOdds fetches odds for a single event, used for deep (higher
// cardinality) markets that the bulk endpoint does not serve.
func (c *Client) EventOdds(ctx context.Context, sportKey, eventID string, opts ReqOpts) (*RawEvent, Usage, error) {
	params := c.oddsParams(opts)
	body, usage, err := c.get(ctx, "/sports/"+sportKey+"/events/"+eventID+"/odds", params)
	if err != nil {
		return nil, usage, err
	}
	var event RawEvent
	if err := json.Unmarshal(body, &event); err != nil {
		var list []RawEvent
		if err2 := json.Unmarshal(body, &list); err2 != nil || len(list) == 0 {
			return nil, usage, &domain.FetchError{Kind: domain.FetchMalformed, Err: err}
		}
		event = list[0]
	}
	return &event, usage, nil
}

// Markets lists the market keys the API currently supports for a sport.
func (c *Client) Markets(ctx context.Context, sportKey string) ([]string, Usage, error) {
	params := url.Values{"apiKey": {c.apiKey}}
	body, usage, err := c.get(ctx, "/sports/"+sportKey+"/markets", params)
	if err != nil {
		return nil, usage, err
	}
	var infos []rawMarketInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		var keys []string
		if err2 := json.Unmarshal(body, &keys); err2 != nil {
			return nil, usage, &domain.FetchError{Kind: domain.FetchMalformed, Err: err}
		}
		return keys, usage, nil
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		switch {
		case info.Key != "":
			keys = append(keys, info.Key)
		case info.Name != "":
			keys = append(keys, info.Name)
		}
	}
	return keys, usage, nil
}

func (c *Client) oddsParams(opts ReqOpts) url.Values {
	params := url.Values{
		"apiKey":     {c.apiKey},
		"regions":    {joinSorted(opts.Regions)},
		"markets":    {joinSorted(opts.Markets)},
		"oddsFormat": {"american"},
		"dateFormat": {"iso"},
	}
	if len(opts.Bookmakers) > 0 {
		params.Set("bookmakers", joinSorted(opts.Bookmakers))
	}
	return params
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, Usage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Usage{}, &domain.FetchError{Kind: domain.FetchNetwork, Err: err}
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, Usage{}, &domain.FetchError{Kind: domain.FetchNetwork, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := domain.FetchNetwork
		if isTimeout(err) {
			kind = domain.FetchTimeout
		}
		return nil, Usage{}, &domain.FetchError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	usage := parseUsage(resp.Header, time.Now().UTC())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, usage, &domain.FetchError{Kind: domain.FetchNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, usage, classifyStatus(resp.StatusCode, body)
	}
	return body, usage, nil
}

func classifyStatus(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	err := fmt.Errorf("odds api: %s", msg)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.FetchError{Kind: domain.FetchAuth, Status: status, Err: err}
	case http.StatusTooManyRequests:
		return &domain.FetchError{Kind: domain.FetchRateLimited, Status: status, Err: err}
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return &domain.FetchError{Kind: domain.FetchMalformed, Status: status, Err: err}
	default:
		return &domain.FetchError{Kind: domain.FetchNetwork, Status: status, Err: err}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// parseUsage reads the x-requests-remaining and reset headers. The API
// reports the reset either as a unix timestamp or as seconds remaining.
func parseUsage(h http.Header, now time.Time) Usage {
	var usage Usage

	if v := h.Get("x-requests-remaining"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			usage.Remaining = &n
		}
	}

	if v := h.Get("x-requests-reset"); v != "" {
		if ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			t := time.Unix(ts, 0).UTC()
			usage.ResetAt = &t
			return usage
		}
	}
	if v := h.Get("x-requests-remaining-time"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			t := now
			if secs > 0 {
				t = now.Add(time.Duration(secs) * time.Second)
			}
			usage.ResetAt = &t
		}
	}
	return usage
}

func joinSorted(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
