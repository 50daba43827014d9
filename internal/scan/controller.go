package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// CycleRunner executes one scan cycle.
type CycleRunner interface {
	Run(ctx context.Context, spec domain.ScanSpec) (domain.CycleResult, error)
}

// ScanState describes one managed scan loop.
type ScanState string

const (
	StateRunning ScanState = "running"
	StateHalted  ScanState = "halted"
	StateStopped ScanState = "stopped"
)

// Status is a point-in-time view of a managed scan.
type Status struct {
	Name      string
	Mode      domain.ScanMode
	State     ScanState
	Cycles    int
	Skipped   int
	LastCycle time.Time
	LastError string
}

type loopState struct {
	spec    domain.ScanSpec
	pending *domain.ScanSpec
	state   ScanState
	cycles  int
	skipped int
	last    time.Time
	lastErr string
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// Controller owns the scan loops. Each named scan runs at most one cycle at a
// time; stop and reconfigure both take effect at cycle boundaries, never
// mid-cycle.
type Controller struct {
	runner CycleRunner
	sink   Sink
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	loops map[string]*loopState
	wg    sync.WaitGroup
}

// NewController creates a Controller emitting completed cycles to sink.
func NewController(runner CycleRunner, sink Sink, logger *slog.Logger) *Controller {
	return &Controller{
		runner: runner,
		sink:   sink,
		logger: logger.With(slog.String("component", "controller")),
		sleep:  sleepCtx,
		loops:  make(map[string]*loopState),
	}
}

// Start launches a scan loop for spec. It fails with ErrScanRunning when a
// loop with the same name is already active.
func (c *Controller) Start(ctx context.Context, spec domain.ScanSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("scan spec has no name")
	}

	c.mu.Lock()
	if existing, ok := c.loops[spec.Name]; ok && existing.state == StateRunning {
		c.mu.Unlock()
		return fmt.Errorf("scan %s: %w", spec.Name, domain.ErrScanRunning)
	}
	ls := &loopState{
		spec:  spec,
		state: StateRunning,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	c.loops[spec.Name] = ls
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ls.done)
		c.runLoop(ctx, ls)
	}()
	return nil
}

// Stop requests a cooperative stop of a named scan and waits for the loop to
// exit. An in-flight cycle completes and emits first.
func (c *Controller) Stop(name string) error {
	c.mu.Lock()
	ls, ok := c.loops[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("scan %s: %w", name, domain.ErrNotFound)
	}
	select {
	case <-ls.stop:
	default:
		close(ls.stop)
	}
	c.mu.Unlock()

	<-ls.done
	return nil
}

// Reconfigure queues a new spec for a running scan. The swap happens at the
// next cycle boundary; the in-flight cycle keeps its current spec.
func (c *Controller) Reconfigure(name string, spec domain.ScanSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, ok := c.loops[name]
	if !ok {
		return fmt.Errorf("scan %s: %w", name, domain.ErrNotFound)
	}
	if ls.state == StateHalted {
		return fmt.Errorf("scan %s: %w", name, domain.ErrScanHalted)
	}
	spec.Name = name
	ls.pending = &spec
	return nil
}

// Rescan wakes a resting scan loop so its next cycle starts immediately.
func (c *Controller) Rescan(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, ok := c.loops[name]
	if !ok {
		return fmt.Errorf("scan %s: %w", name, domain.ErrNotFound)
	}
	if ls.state != StateRunning {
		return fmt.Errorf("scan %s: %w", name, domain.ErrScanHalted)
	}
	select {
	case ls.wake <- struct{}{}:
	default:
	}
	return nil
}

// StatusAll reports every managed scan, running or not.
func (c *Controller) StatusAll() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Status, 0, len(c.loops))
	for _, ls := range c.loops {
		out = append(out, Status{
			Name:      ls.spec.Name,
			Mode:      ls.spec.Mode,
			State:     ls.state,
			Cycles:    ls.cycles,
			Skipped:   ls.skipped,
			LastCycle: ls.last,
			LastError: ls.lastErr,
		})
	}
	return out
}

// Close stops every loop and waits for them to drain.
func (c *Controller) Close() {
	c.mu.Lock()
	for _, ls := range c.loops {
		select {
		case <-ls.stop:
		default:
			close(ls.stop)
		}
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) runLoop(ctx context.Context, ls *loopState) {
	for completed := 0; ; completed++ {
		spec := c.takeSpec(ls)
		policy := tickPolicy{spec: spec}
		if !policy.another(completed) {
			c.setState(ls, StateStopped, "")
			return
		}
		if stopped(ctx, ls.stop) {
			c.setState(ls, StateStopped, "")
			return
		}

		result, err := c.runner.Run(ctx, spec)
		switch {
		case err == nil:
			// Emit fully before the next cycle can start fetching.
			if err := c.sink.EmitCycle(ctx, result); err != nil {
				c.logger.Error("cycle emission failed",
					slog.String("scan", spec.Name),
					slog.Any("error", err),
				)
			}
			c.recordCycle(ls, result)

		case errors.Is(err, domain.ErrQuotaExhausted):
			c.recordSkip(ls, err)
			c.logger.Warn("cycle skipped, quota exhausted",
				slog.String("scan", spec.Name),
			)

		case domain.FetchKindOf(err) == domain.FetchAuth && spec.Mode != domain.ScanModeSnapshot:
			// Credentials will not heal on their own; retrying burns
			// nothing but log noise. Operator intervention required.
			c.setState(ls, StateHalted, err.Error())
			c.logger.Error("scanning halted on auth failure",
				slog.String("scan", spec.Name),
				slog.Any("error", err),
			)
			return

		default:
			c.recordSkip(ls, err)
			c.logger.Error("cycle aborted",
				slog.String("scan", spec.Name),
				slog.Any("error", err),
			)
			if spec.Mode == domain.ScanModeSnapshot {
				c.setState(ls, StateStopped, err.Error())
				return
			}
		}

		if !policy.another(completed + 1) {
			c.setState(ls, StateStopped, "")
			return
		}

		rest := policy.restAfter(err == nil && result.WithinBurst)
		if !c.rest(ctx, ls, rest) {
			c.setState(ls, StateStopped, "")
			return
		}
	}
}

// rest pauses between cycles. It returns false when the loop should exit, and
// early (true) when a rescan wake arrives.
func (c *Controller) rest(ctx context.Context, ls *loopState, d time.Duration) bool {
	restCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.sleep(restCtx, d) }()

	select {
	case <-ls.stop:
		return false
	case <-ls.wake:
		return true
	case err := <-done:
		return err == nil
	}
}

func (c *Controller) takeSpec(ls *loopState) domain.ScanSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ls.pending != nil {
		c.logger.Info("scan reconfigured",
			slog.String("scan", ls.pending.Name),
		)
		ls.spec = *ls.pending
		ls.pending = nil
	}
	return ls.spec
}

func (c *Controller) recordCycle(ls *loopState, result domain.CycleResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ls.cycles++
	ls.last = result.FinishedAt
	ls.lastErr = ""
}

func (c *Controller) recordSkip(ls *loopState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ls.skipped++
	ls.lastErr = err.Error()
}

func (c *Controller) setState(ls *loopState, state ScanState, lastErr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ls.state = state
	if lastErr != "" {
		ls.lastErr = lastErr
	}
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
