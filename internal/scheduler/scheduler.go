// Package scheduler is the refresh coordinator of component E: a single
// logical actor with three inputs (timer tick, manual trigger, shutdown)
// and one output (a RefreshResult published to every waiter of the cycle
// that produced it). Mercury's per-sport ticker/goroutine idiom and its
// addJitter helper are kept as the timing idiom, generalized into one
// worker loop per spec §4.E/§5 instead of one goroutine per sport.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/fortuna-sports/arbiter/internal/cache"
	"github.com/fortuna-sports/arbiter/internal/detector"
	"github.com/fortuna-sports/arbiter/internal/metrics"
	"github.com/fortuna-sports/arbiter/internal/registry"
	"github.com/fortuna-sports/arbiter/internal/telemetry"
	"github.com/fortuna-sports/arbiter/pkg/contracts"
	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

// shutdownGrace bounds how long Stop waits for the run loop to drain per
// spec §5 ("the scheduler must return within 5s of a shutdown request").
const shutdownGrace = 5 * time.Second

// RefreshResult is returned to every caller of Trigger (and published as
// LastRun) for one refresh cycle. Matches spec §7's manual-refresh shape.
type RefreshResult struct {
	Status     string // "ok" | "partial" | "failed" | "cancelled"
	Detected   int
	Persisted  int
	DurationMs int64
	Errors     []string
}

// LastRun is the whole-struct snapshot the scheduler publishes after every
// cycle — single writer (the run loop), many readers, never updated
// field-by-field.
type LastRun struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Result     RefreshResult
}

// Scheduler coordinates the periodic ingest -> detect -> persist pipeline.
type Scheduler struct {
	client   contracts.OddsClient
	store    contracts.Store
	registry *registry.SportRegistry
	cache    *cache.Cache // optional; nil disables read acceleration
	metrics  *metrics.Metrics
	detectCfg detector.Config
	interval  time.Duration

	triggerCh  chan triggerRequest
	shutdownCh chan struct{}
	doneCh     chan struct{}

	mu            sync.RWMutex
	lastRun       LastRun
	quota         models.QuotaSnapshot
	suppressUntil time.Time

	now func() time.Time // seam for tests
}

type triggerRequest struct {
	respCh chan RefreshResult
}

// New constructs a Scheduler. cache may be nil.
func New(
	client contracts.OddsClient,
	store contracts.Store,
	reg *registry.SportRegistry,
	cacheLayer *cache.Cache,
	m *metrics.Metrics,
	detectCfg detector.Config,
	interval time.Duration,
) *Scheduler {
	return &Scheduler{
		client:     client,
		store:      store,
		registry:   reg,
		cache:      cacheLayer,
		metrics:    m,
		detectCfg:  detectCfg,
		interval:   interval,
		triggerCh:  make(chan triggerRequest),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run is the scheduler's single worker loop. It blocks until Stop is
// called (or ctx is cancelled) and must be started in its own goroutine.
// On startup it performs an initial refresh immediately before the first
// interval tick, unless interval is 0 (manual-only mode).
func (s *Scheduler) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(s.doneCh)

	var ticker *time.Ticker
	var tickC <-chan time.Time
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	refreshDone := make(chan RefreshResult, 1)
	var waiters []chan RefreshResult
	running := false

	start := func() {
		running = true
		go func() { refreshDone <- s.runOnce(ctx) }()
	}

	if s.interval > 0 {
		start()
	}

	for {
		select {
		case <-tickC:
			switch {
			case running:
				if s.metrics != nil {
					s.metrics.RefreshTicksDropped.Inc()
				}
				telemetry.Warnf("scheduler: tick dropped, refresh already in flight")
			case s.now().Before(s.suppressedUntil()):
				telemetry.Warnf("scheduler: tick suppressed until %v (quota reset)", s.suppressedUntil())
			default:
				start()
			}

		case req := <-s.triggerCh:
			waiters = append(waiters, req.respCh)
			if !running {
				start()
			}

		case res := <-refreshDone:
			running = false
			s.publish(res)
			for _, w := range waiters {
				w <- res
			}
			waiters = nil

		case <-s.shutdownCh:
			cancel()
			if running {
				res := <-refreshDone
				s.publish(res)
				for _, w := range waiters {
					w <- res
				}
			}
			return

		case <-ctx.Done():
			if running {
				res := <-refreshDone
				s.publish(res)
				for _, w := range waiters {
					w <- res
				}
			}
			return
		}
	}
}

// Trigger starts a refresh if idle, or piggybacks on the in-flight run if
// one is already running; both cases return the same result to every
// caller of that cycle.
func (s *Scheduler) Trigger(ctx context.Context) (RefreshResult, error) {
	respCh := make(chan RefreshResult, 1)
	select {
	case s.triggerCh <- triggerRequest{respCh: respCh}:
	case <-s.doneCh:
		return RefreshResult{}, oddserr.Cancelled("scheduler is stopped")
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	}

	select {
	case res := <-respCh:
		return res, nil
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	}
}

// Stop signals shutdown and waits up to shutdownGrace for the run loop to
// drain the in-flight refresh and return.
func (s *Scheduler) Stop() {
	select {
	case <-s.shutdownCh:
		return // already stopping
	default:
		close(s.shutdownCh)
	}

	select {
	case <-s.doneCh:
	case <-time.After(shutdownGrace):
		telemetry.Errorf("scheduler: shutdown exceeded %v grace period", shutdownGrace)
	}
}

// LastRun returns the most recently published refresh record.
func (s *Scheduler) LastRun() LastRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Quota returns the last-observed quota snapshot.
func (s *Scheduler) Quota() models.QuotaSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quota
}

func (s *Scheduler) suppressedUntil() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suppressUntil
}

func (s *Scheduler) publish(res RefreshResult) {
	s.mu.Lock()
	s.lastRun = LastRun{
		StartedAt:  s.now().Add(-time.Duration(res.DurationMs) * time.Millisecond),
		FinishedAt: s.now(),
		Result:     res,
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveRefresh(time.Duration(res.DurationMs) * time.Millisecond)
	}
}

// runOnce executes one full refresh cycle: catalogue sync, per-sport
// fetch (with retry owned by the odds client per §4.C), detection, and
// the two sequential persistence transactions of §4.E step 4.
func (s *Scheduler) runOnce(ctx context.Context) RefreshResult {
	started := s.now()
	var errs []string
	status := "ok"

	sports, err := s.client.ListSports(ctx)
	if err != nil {
		return RefreshResult{Status: "failed", Errors: []string{fmt.Sprintf("list_sports: %v", err)}, DurationMs: ms(s.now().Sub(started))}
	}
	s.registry.Replace(sports)

	sportKeys := s.registry.Keys()
	sort.Strings(sportKeys) // deterministic sweep order

	var allEvents []models.Event
	var quota models.QuotaSnapshot
	abortNoPersist := false

	for _, key := range sportKeys {
		select {
		case <-ctx.Done():
			status = "cancelled"
			abortNoPersist = true
		default:
		}
		if abortNoPersist {
			break
		}

		events, q, err := s.client.GetOdds(ctx, key)
		if err != nil {
			switch oddserr.KindOf(err) {
			case oddserr.KindAuth:
				status = "failed"
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				abortNoPersist = true
			case oddserr.KindQuotaExhausted:
				status = "partial"
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				s.recordQuotaExhaustion(err)
				abortNoPersist = true
			case oddserr.KindCancelled:
				status = "cancelled"
				abortNoPersist = true
			default:
				// TransientError (retries exhausted), BadRequest, or
				// InvalidPayload: drop this sport, other sports proceed.
				if status == "ok" {
					status = "partial"
				}
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			}
			continue
		}

		quota = q
		allEvents = append(allEvents, events...)
	}

	if quota != (models.QuotaSnapshot{}) {
		s.mu.Lock()
		s.quota = quota
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.QuotaRemaining.Set(float64(quota.RequestsRemaining))
		}
	}

	if abortNoPersist {
		return RefreshResult{Status: status, Errors: errs, DurationMs: ms(s.now().Sub(started))}
	}

	now := s.now()
	ops := detector.Detect(allEvents, s.detectCfg, now)

	persisted := 0
	if err := s.store.ReplaceLatest(ctx, allEvents); err != nil {
		status = "failed"
		errs = append(errs, fmt.Sprintf("replace_latest: %v", err))
		if s.metrics != nil {
			s.metrics.StoreWriteErrors.Inc()
		}
	} else {
		if s.cache != nil {
			_ = s.cache.SetLatestEvents(context.Background(), allEvents)
		}
		if err := s.store.AppendOpportunities(ctx, ops); err != nil {
			// Non-fatal: the latest-events update just committed is
			// authoritative even though opportunity persistence failed.
			if status == "ok" {
				status = "partial"
			}
			errs = append(errs, fmt.Sprintf("append_opportunities: %v", err))
			if s.metrics != nil {
				s.metrics.StoreWriteErrors.Inc()
			}
		} else {
			persisted = len(ops)
		}
	}

	if s.metrics != nil {
		s.metrics.OpportunitiesDetected.Add(float64(len(ops)))
	}

	return RefreshResult{
		Status:     status,
		Detected:   len(ops),
		Persisted:  persisted,
		DurationMs: ms(s.now().Sub(started)),
		Errors:     errs,
	}
}

// recordQuotaExhaustion suppresses future ticks until the documented
// reset instant, or — when the upstream response didn't carry one — until
// the scheduler's own next natural tick (i.e. no special suppression
// beyond the interval that already elapses).
func (s *Scheduler) recordQuotaExhaustion(err error) {
	resetAt := oddserr.ResetAtOf(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !resetAt.IsZero() {
		s.suppressUntil = resetAt
	}
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

// addJitter adds up to jitterSeconds of random jitter to duration, kept
// from Mercury's own ticker idiom for call sites that want de-synced
// timers (e.g. multiple Scheduler instances in one process).
func addJitter(duration time.Duration, jitterSeconds int) time.Duration {
	if jitterSeconds == 0 {
		return duration
	}
	return duration + time.Duration(rand.Intn(jitterSeconds))*time.Second
}
