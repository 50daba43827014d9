package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrInfeasibleAllocation = errors.New("infeasible allocation")
	ErrQuotaExhausted       = errors.New("api quota exhausted")
	ErrRateLimited          = errors.New("rate limited")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrScanRunning          = errors.New("scan already running")
	ErrScanHalted           = errors.New("scanning halted")
	ErrOddsConversion       = errors.New("odds conversion failed")
)

// FetchKind classifies failures from the odds provider.
type FetchKind string

const (
	FetchNetwork     FetchKind = "network"
	FetchAuth        FetchKind = "auth"
	FetchRateLimited FetchKind = "rate_limited"
	FetchTimeout     FetchKind = "timeout"
	FetchMalformed   FetchKind = "malformed"
)

// FetchError is returned by the odds client when a request fails. Kind drives
// the scheduler's reaction: Auth halts continuous scanning, RateLimited defers
// to the usage tracker, everything else aborts only the current cycle.
type FetchError struct {
	Kind   FetchKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchKindOf extracts the fetch failure kind from err, or "" when err is not
// a FetchError.
func FetchKindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
