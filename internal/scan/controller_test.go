package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// stepRunner hands each cycle to the test for inspection before completing.
type stepRunner struct {
	mu      sync.Mutex
	began   chan domain.ScanSpec
	results []cycleStep
	calls   int
}

type cycleStep struct {
	result domain.CycleResult
	err    error
}

func newStepRunner(steps ...cycleStep) *stepRunner {
	return &stepRunner{
		began:   make(chan domain.ScanSpec, 16),
		results: steps,
	}
}

func (r *stepRunner) Run(_ context.Context, spec domain.ScanSpec) (domain.CycleResult, error) {
	r.mu.Lock()
	idx := r.calls
	r.calls++
	r.mu.Unlock()

	select {
	case r.began <- spec:
	default:
	}
	if idx < len(r.results) {
		step := r.results[idx]
		return step.result, step.err
	}
	return domain.CycleResult{ScanName: spec.Name}, nil
}

func (r *stepRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type captureSink struct {
	mu      sync.Mutex
	emitted []domain.CycleResult
}

func (s *captureSink) EmitCycle(_ context.Context, result domain.CycleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted = append(s.emitted, result)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emitted)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func instantSleep(_ context.Context, _ time.Duration) error { return nil }

func continuousSpec(name string) domain.ScanSpec {
	spec := testSpec()
	spec.Name = name
	spec.Mode = domain.ScanModeContinuous
	spec.Interval = 5 * time.Second
	return spec
}

func TestControllerSnapshotRunsOnce(t *testing.T) {
	runner := newStepRunner()
	sink := &captureSink{}
	c := NewController(runner, sink, testLogger())
	c.sleep = instantSleep

	spec := testSpec()
	spec.Name = "once"
	if err := c.Start(context.Background(), spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.wg.Wait()

	if got := runner.callCount(); got != 1 {
		t.Errorf("cycles = %d, want 1", got)
	}
	if sink.count() != 1 {
		t.Errorf("emitted = %d, want 1", sink.count())
	}
	status := c.StatusAll()
	if len(status) != 1 || status[0].State != StateStopped {
		t.Errorf("status = %+v, want one stopped scan", status)
	}
}

func TestControllerIntervalEndToStart(t *testing.T) {
	// With a 5s interval and 2s cycles, cycles start at t=0, 7, 14.
	var (
		mu    sync.Mutex
		now   time.Time
		start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		runs  []time.Duration
	)
	now = start

	runner := cycleRunnerFunc(func(_ context.Context, spec domain.ScanSpec) (domain.CycleResult, error) {
		mu.Lock()
		runs = append(runs, now.Sub(start))
		now = now.Add(2 * time.Second)
		mu.Unlock()
		return domain.CycleResult{ScanName: spec.Name}, nil
	})

	c := NewController(runner, &captureSink{}, testLogger())
	c.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		if len(runs) >= 3 {
			return errors.New("test over")
		}
		now = now.Add(d)
		return nil
	}

	if err := c.Start(context.Background(), continuousSpec("spacing")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.wg.Wait()

	want := []time.Duration{0, 7 * time.Second, 14 * time.Second}
	if len(runs) != len(want) {
		t.Fatalf("runs = %v, want %v", runs, want)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("cycle %d started at %v, want %v", i, runs[i], want[i])
		}
	}
}

// cycleRunnerFunc adapts a function to CycleRunner.
type cycleRunnerFunc func(ctx context.Context, spec domain.ScanSpec) (domain.CycleResult, error)

func (f cycleRunnerFunc) Run(ctx context.Context, spec domain.ScanSpec) (domain.CycleResult, error) {
	return f(ctx, spec)
}

func TestControllerAuthFailureHalts(t *testing.T) {
	authErr := &domain.FetchError{Kind: domain.FetchAuth, Status: 401, Err: errors.New("bad key")}
	runner := newStepRunner(cycleStep{err: authErr})
	c := NewController(runner, &captureSink{}, testLogger())
	c.sleep = instantSleep

	if err := c.Start(context.Background(), continuousSpec("halting")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.wg.Wait()

	if got := runner.callCount(); got != 1 {
		t.Errorf("cycles = %d, want 1 (no retry after auth failure)", got)
	}
	status := c.StatusAll()
	if len(status) != 1 || status[0].State != StateHalted {
		t.Fatalf("status = %+v, want halted", status)
	}
	if err := c.Rescan("halting"); !errors.Is(err, domain.ErrScanHalted) {
		t.Errorf("Rescan on halted scan: err = %v, want ErrScanHalted", err)
	}
}

func TestControllerQuotaSkipContinues(t *testing.T) {
	runner := newStepRunner(
		cycleStep{err: domain.ErrQuotaExhausted},
		cycleStep{result: domain.CycleResult{ScanName: "quota"}},
	)
	sink := &captureSink{}
	c := NewController(runner, sink, testLogger())
	c.sleep = instantSleep

	if err := c.Start(context.Background(), continuousSpec("quota")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return sink.count() >= 1 }, "no cycle emitted after quota skip")

	if err := c.Stop("quota"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	status := c.StatusAll()
	if status[0].Skipped < 1 {
		t.Errorf("skipped = %d, want >= 1", status[0].Skipped)
	}
	if status[0].Cycles < 1 {
		t.Errorf("cycles = %d, want >= 1", status[0].Cycles)
	}
}

func TestControllerReconfigureAppliesAtBoundary(t *testing.T) {
	runner := newStepRunner()
	c := NewController(runner, &captureSink{}, testLogger())
	c.sleep = instantSleep

	spec := continuousSpec("reconf")
	if err := c.Start(context.Background(), spec); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first := <-runner.began
	if len(first.Sports) != 1 {
		t.Fatalf("first cycle sports = %v", first.Sports)
	}

	next := spec
	next.Sports = []string{"basketball_nba", "icehockey_nhl"}
	if err := c.Reconfigure("reconf", next); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}

	// The swap lands on whichever boundary follows; drain cycles until the
	// new sport list shows up.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case spec := <-runner.began:
			if len(spec.Sports) == 2 {
				if err := c.Stop("reconf"); err != nil {
					t.Fatalf("Stop: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("reconfigured spec never took effect")
		}
	}
}

func TestControllerRescanWakes(t *testing.T) {
	runner := newStepRunner()
	c := NewController(runner, &captureSink{}, testLogger())
	// A rest long enough that only a wake can explain a second cycle.
	spec := continuousSpec("manual")
	spec.Interval = time.Hour

	if err := c.Start(context.Background(), spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-runner.began

	waitFor(t, func() bool { return c.Rescan("manual") == nil }, "rescan never accepted")

	select {
	case <-runner.began:
	case <-time.After(5 * time.Second):
		t.Fatal("rescan did not trigger a cycle")
	}
	if err := c.Stop("manual"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestControllerConcurrentStops(t *testing.T) {
	runner := newStepRunner()
	c := NewController(runner, &captureSink{}, testLogger())
	spec := continuousSpec("racy")
	spec.Interval = time.Hour

	if err := c.Start(context.Background(), spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-runner.began

	// Stop from several goroutines at once, with Close racing them. Only one
	// may close the stop channel; the rest must return cleanly.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Stop("racy"); err != nil {
				t.Errorf("Stop: %v", err)
			}
		}()
	}
	c.Close()
	wg.Wait()
}

func TestControllerStartTwiceFails(t *testing.T) {
	runner := newStepRunner()
	c := NewController(runner, &captureSink{}, testLogger())
	spec := continuousSpec("dup")
	spec.Interval = time.Hour

	if err := c.Start(context.Background(), spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-runner.began

	if err := c.Start(context.Background(), spec); !errors.Is(err, domain.ErrScanRunning) {
		t.Fatalf("second Start: err = %v, want ErrScanRunning", err)
	}
	if err := c.Stop("dup"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestControllerBurstTightensInterval(t *testing.T) {
	spec := testSpec()
	spec.Mode = domain.ScanModeBurst
	spec.Interval = 5 * time.Minute
	spec.BurstInterval = 30 * time.Second

	policy := tickPolicy{spec: spec}
	if got := policy.restAfter(true); got != 30*time.Second {
		t.Errorf("burst rest = %v, want 30s", got)
	}
	if got := policy.restAfter(false); got != 5*time.Minute {
		t.Errorf("idle rest = %v, want 5m", got)
	}
}
