package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fortuna-sports/arbiter/internal/store"
	"github.com/fortuna-sports/arbiter/pkg/contracts"
	"github.com/fortuna-sports/arbiter/pkg/models"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbiter.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEvent(home, away string, hoursUntil float64) models.Event {
	return models.Event{
		SportKey:     "basketball_nba",
		CommenceTime: time.Now().UTC().Add(time.Duration(hoursUntil * float64(time.Hour))),
		HomeTeam:     home,
		AwayTeam:     away,
	}
}

func TestReplaceLatest_AtomicSwap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []models.Event{testEvent("Lakers", "Celtics", 2)}
	require.NoError(t, s.ReplaceLatest(ctx, first))

	got, err := s.ListLatest(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)

	second := []models.Event{testEvent("Heat", "Bulls", 3)}
	require.NoError(t, s.ReplaceLatest(ctx, second))

	got, err = s.ListLatest(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Heat", got[0].HomeTeam)
}

func TestListLatest_FiltersBySport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	nba := testEvent("Lakers", "Celtics", 2)
	nfl := testEvent("Chiefs", "Bills", 2)
	nfl.SportKey = "americanfootball_nfl"

	require.NoError(t, s.ReplaceLatest(ctx, []models.Event{nba, nfl}))

	got, err := s.ListLatest(ctx, "americanfootball_nfl")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Chiefs", got[0].HomeTeam)
}

func newOpportunity(market string, detectedAt time.Time, profitPct float64) models.Opportunity {
	return models.Opportunity{
		ID:                      "opp-" + market,
		SportKey:                "basketball_nba",
		CommenceTime:            time.Now().UTC().Add(2 * time.Hour),
		HomeTeam:                "Lakers",
		AwayTeam:                "Celtics",
		MarketKey:               market,
		TotalImpliedProbability: 0.9,
		ProfitPct:               profitPct,
		DetectedAt:              detectedAt,
		Legs: []models.Leg{
			{OutcomeName: "Lakers", BookmakerKey: "bookA", Price: 150, DecimalPrice: 2.5, ImpliedProbability: 0.4, StakeShare: 0.44},
			{OutcomeName: "Celtics", BookmakerKey: "bookB", Price: 110, DecimalPrice: 2.1, ImpliedProbability: 0.47619, StakeShare: 0.56},
		},
	}
}

func TestAppendOpportunities_IdempotentWithinMinute(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Minute).Add(30 * time.Second)
	op := newOpportunity("h2h", now, 14.13)

	require.NoError(t, s.AppendOpportunities(ctx, []models.Opportunity{op}))
	// Same minute bucket, different detection instant within the minute.
	dup := op
	dup.DetectedAt = now.Add(20 * time.Second)
	require.NoError(t, s.AppendOpportunities(ctx, []models.Opportunity{dup}))

	got, err := s.ListOpportunities(ctx, contracts.ListOpportunitiesQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListOpportunities_FiltersAndOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	op1 := newOpportunity("h2h", base, 5.0)
	op2 := newOpportunity("spreads", base.Add(time.Minute), 10.0)
	op2.ID = "opp-spreads-2"

	require.NoError(t, s.AppendOpportunities(ctx, []models.Opportunity{op1, op2}))

	got, err := s.ListOpportunities(ctx, contracts.ListOpportunitiesQuery{MinProfitPct: 6, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "spreads", got[0].MarketKey)

	// Unfiltered, the most recently detected row comes first.
	all, err := s.ListOpportunities(ctx, contracts.ListOpportunitiesQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "spreads", all[0].MarketKey)
	require.Equal(t, "h2h", all[1].MarketKey)
}

func TestPurgeOpportunities_RemovesOldRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := newOpportunity("h2h", time.Now().UTC().Add(-48*time.Hour), 5.0)
	recent := newOpportunity("spreads", time.Now().UTC(), 5.0)
	recent.ID = "opp-recent"

	require.NoError(t, s.AppendOpportunities(ctx, []models.Opportunity{old, recent}))

	n, err := s.PurgeOpportunities(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := s.ListOpportunities(ctx, contracts.ListOpportunitiesQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "spreads", got[0].MarketKey)
}
