package readapi_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fortuna-sports/arbiter/internal/detector"
	"github.com/fortuna-sports/arbiter/internal/readapi"
	"github.com/fortuna-sports/arbiter/internal/registry"
	"github.com/fortuna-sports/arbiter/internal/scheduler"
	"github.com/fortuna-sports/arbiter/internal/store"
	"github.com/fortuna-sports/arbiter/pkg/models"
)

type stubClient struct{}

func (stubClient) ListSports(ctx context.Context) ([]models.Sport, error) {
	return []models.Sport{{Key: "americanfootball_nfl", Active: true}}, nil
}

func (stubClient) GetOdds(ctx context.Context, sportKey string) ([]models.Event, models.QuotaSnapshot, error) {
	return nil, models.QuotaSnapshot{RequestsRemaining: 42}, nil
}

func newAPI(t *testing.T) (*readapi.API, *scheduler.Scheduler) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "arbiter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := registry.NewSportRegistry(nil)
	cfg := detector.Config{Markets: []string{"h2h"}}
	sched := scheduler.New(stubClient{}, st, reg, nil, nil, cfg, 0)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sched.Run(ctx)
	t.Cleanup(sched.Stop)

	return readapi.New(st, sched, reg, nil), sched
}

func TestTriggerRefresh_UpdatesStatusAndSports(t *testing.T) {
	api, _ := newAPI(t)

	res, err := api.TriggerRefresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", res.Status)

	status := api.Status()
	require.Equal(t, []string{"americanfootball_nfl"}, status.Configured)
	require.Equal(t, 42, status.Quota.RequestsRemaining)

	sports := api.Sports()
	require.Len(t, sports, 1)
	require.Equal(t, "americanfootball_nfl", sports[0].Key)
}

func TestCurrentOpportunities_EmptyBeforeAnyDetection(t *testing.T) {
	api, _ := newAPI(t)

	got, err := api.CurrentOpportunities(context.Background(), "", 0, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHistoricalOpportunities_SinceFilterOnEmptyLog(t *testing.T) {
	api, _ := newAPI(t)

	got, err := api.HistoricalOpportunities(context.Background(), time.Now().Add(-time.Hour), "", 10)
	require.NoError(t, err)
	require.Empty(t, got)
}
