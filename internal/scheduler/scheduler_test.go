package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna-sports/arbiter/internal/detector"
	"github.com/fortuna-sports/arbiter/internal/registry"
	"github.com/fortuna-sports/arbiter/internal/scheduler"
	"github.com/fortuna-sports/arbiter/pkg/contracts"
	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

type fakeClient struct {
	mu        sync.Mutex
	calls     int
	latency   time.Duration
	oddsByKey map[string][]models.Event
	errByKey  map[string]error
}

func (f *fakeClient) ListSports(ctx context.Context) ([]models.Sport, error) {
	return []models.Sport{
		{Key: "americanfootball_nfl", Active: true, HasOutcomes: true},
	}, nil
}

func (f *fakeClient) GetOdds(ctx context.Context, sportKey string) ([]models.Event, models.QuotaSnapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, models.QuotaSnapshot{}, oddserr.Cancelled("ctx done")
		}
	}
	if err, ok := f.errByKey[sportKey]; ok {
		return nil, models.QuotaSnapshot{}, err
	}
	return f.oddsByKey[sportKey], models.QuotaSnapshot{RequestsRemaining: 100}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	latest    []models.Event
	opps      []models.Opportunity
	replaceErr error
}

func (s *fakeStore) ReplaceLatest(ctx context.Context, events []models.Event) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.mu.Lock()
	s.latest = events
	s.mu.Unlock()
	return nil
}
func (s *fakeStore) ListLatest(ctx context.Context, sport string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, nil
}
func (s *fakeStore) AppendOpportunities(ctx context.Context, ops []models.Opportunity) error {
	s.mu.Lock()
	s.opps = append(s.opps, ops...)
	s.mu.Unlock()
	return nil
}
func (s *fakeStore) ListOpportunities(ctx context.Context, q contracts.ListOpportunitiesQuery) ([]models.Opportunity, error) {
	return s.opps, nil
}
func (s *fakeStore) PurgeOpportunities(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}
func (s *fakeStore) Close() error { return nil }

func newTestScheduler(client *fakeClient, st *fakeStore, interval time.Duration) *scheduler.Scheduler {
	reg := registry.NewSportRegistry(nil)
	cfg := detector.Config{Markets: []string{"h2h"}, MinProfitPct: 0}
	return scheduler.New(client, st, reg, nil, nil, cfg, interval)
}

func TestScheduler_ManualTriggerWhileIdle(t *testing.T) {
	client := &fakeClient{}
	st := &fakeStore{}
	sched := newTestScheduler(client, st, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	defer sched.Stop()

	res, err := sched.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 1, client.calls)
}

func TestScheduler_OverlappingManualTriggersPiggyback(t *testing.T) {
	client := &fakeClient{latency: 200 * time.Millisecond}
	st := &fakeStore{}
	sched := newTestScheduler(client, st, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	defer sched.Stop()

	var wg sync.WaitGroup
	results := make([]scheduler.RefreshResult, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			results[i], errs[i] = sched.Trigger(context.Background())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 1, client.calls) // only one upstream call per sport
}

func TestScheduler_QuotaExhaustedAbortsCycle_NoPersist(t *testing.T) {
	client := &fakeClient{
		errByKey: map[string]error{"americanfootball_nfl": oddserr.QuotaExhausted("429")},
	}
	st := &fakeStore{latest: []models.Event{{SportKey: "preexisting"}}}
	sched := newTestScheduler(client, st, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	defer sched.Stop()

	res, err := sched.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "partial", res.Status)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, "preexisting", st.latest[0].SportKey) // not replaced
}

func TestScheduler_AuthErrorAbortsCycle(t *testing.T) {
	client := &fakeClient{
		errByKey: map[string]error{"americanfootball_nfl": oddserr.Auth("bad key")},
	}
	st := &fakeStore{}
	sched := newTestScheduler(client, st, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	defer sched.Stop()

	res, err := sched.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Status)
}

func TestScheduler_StopDrainsInFlightRefresh(t *testing.T) {
	client := &fakeClient{latency: 100 * time.Millisecond}
	st := &fakeStore{}
	sched := newTestScheduler(client, st, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	time.Sleep(10 * time.Millisecond) // initial refresh is in flight
	start := time.Now()
	sched.Stop()
	assert.Less(t, time.Since(start), 5*time.Second)
}
