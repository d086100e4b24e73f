package detector_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna-sports/arbiter/internal/detector"
	"github.com/fortuna-sports/arbiter/pkg/models"
)

func pt(v float64) *float64 { return &v }

func h2hEvent(home, away string, books map[string][2]float64) models.Event {
	bms := make([]models.Bookmaker, 0, len(books))
	for key, prices := range books {
		bms = append(bms, models.Bookmaker{
			Key: key,
			Markets: []models.MarketQuote{
				{
					MarketKey: "h2h",
					Outcomes: []models.Outcome{
						{Name: home, Price: prices[0]},
						{Name: away, Price: prices[1]},
					},
				},
			},
		})
	}
	return models.Event{
		SportKey:     "americanfootball_nfl",
		CommenceTime: time.Now().Add(2 * time.Hour),
		HomeTeam:     home,
		AwayTeam:     away,
		Bookmakers:   bms,
	}
}

func cfg() detector.Config {
	return detector.Config{Markets: []string{"h2h", "spreads", "totals"}, MinProfitPct: 0, OddsFormat: "decimal"}
}

func TestDetect_Classic2WayArb(t *testing.T) {
	// BookA: Chiefs 2.5 (~+150), Bills 1.5556 (~-180)
	// BookB: Chiefs 2.2 (~+120), Bills 2.10  (~+110)
	event := h2hEvent("Chiefs", "Bills", map[string][2]float64{
		"bookA": {2.5, 1 + 100.0/180},
		"bookB": {2.2, 2.10},
	})

	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	require.Len(t, opps, 1)

	o := opps[0]
	assert.InDelta(t, 14.13, o.ProfitPct, 0.2)
	require.Len(t, o.Legs, 2)

	byName := map[string]models.Leg{}
	for _, l := range o.Legs {
		byName[l.OutcomeName] = l
	}
	assert.Equal(t, "bookA", byName["Chiefs"].BookmakerKey)
	assert.Equal(t, "bookB", byName["Bills"].BookmakerKey)
	assert.InDelta(t, 1.0, sumStakes(o), 1e-9)
}

func TestDetect_NoArb(t *testing.T) {
	d := 1 + 100.0/110 // -110 American
	event := h2hEvent("A", "B", map[string][2]float64{
		"bookA": {d, d},
		"bookB": {d, d},
	})

	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	assert.Empty(t, opps)
}

func TestDetect_SumProbsExactlyOne_NoOpportunity(t *testing.T) {
	event := h2hEvent("A", "B", map[string][2]float64{
		"bookA": {2.0, 2.0},
		"bookB": {2.0, 2.0},
	})
	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	assert.Empty(t, opps)
}

func TestDetect_EmptyEvents(t *testing.T) {
	opps := detector.Detect(nil, cfg(), time.Now())
	assert.Empty(t, opps)
}

func TestDetect_PastEventFiltered(t *testing.T) {
	event := h2hEvent("A", "B", map[string][2]float64{
		"bookA": {2.5, 2.5},
		"bookB": {2.2, 2.2},
	})
	event.CommenceTime = time.Now().Add(-1 * time.Second)

	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	assert.Empty(t, opps)
}

func TestDetect_FewerThanMinBooksSkipped(t *testing.T) {
	event := h2hEvent("A", "B", map[string][2]float64{
		"bookA": {2.5, 2.5},
	})
	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	assert.Empty(t, opps)
}

func TestDetect_SpreadsAsymmetricLinesNotCrossPaired(t *testing.T) {
	p25, p25n, p30, p30n := 2.5, -2.5, 3.0, -3.0
	event := models.Event{
		SportKey:     "americanfootball_nfl",
		CommenceTime: time.Now().Add(2 * time.Hour),
		HomeTeam:     "A",
		AwayTeam:     "B",
		Bookmakers: []models.Bookmaker{
			{
				Key: "bookA",
				Markets: []models.MarketQuote{{
					MarketKey: "spreads",
					Outcomes: []models.Outcome{
						{Name: "A", Price: 1 + 100.0/110, Point: &p25n},
						{Name: "B", Price: 1 + 100.0/110, Point: &p25},
					},
				}},
			},
			{
				Key: "bookB",
				Markets: []models.MarketQuote{{
					MarketKey: "spreads",
					Outcomes: []models.Outcome{
						{Name: "A", Price: 2.0, Point: &p30n},
						{Name: "B", Price: 1 + 100.0/120, Point: &p30},
					},
				}},
			},
		},
	}

	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	// Neither line group sums below 1.0; no arb, and no cross-book
	// -2.5/+3.0 pairing is ever attempted.
	assert.Empty(t, opps)
}

func TestDetect_Determinism_BookmakerOrderInvariant(t *testing.T) {
	event1 := h2hEvent("Chiefs", "Bills", map[string][2]float64{
		"bookA": {2.5, 1 + 100.0/180},
		"bookB": {2.2, 2.10},
	})
	event2 := h2hEvent("Chiefs", "Bills", map[string][2]float64{
		"bookB": {2.2, 2.10},
		"bookA": {2.5, 1 + 100.0/180},
	})
	event2.CommenceTime = event1.CommenceTime // same event identity for both runs

	opps1 := detector.Detect([]models.Event{event1}, cfg(), time.Now())
	opps2 := detector.Detect([]models.Event{event2}, cfg(), time.Now())
	require.Len(t, opps1, 1)
	require.Len(t, opps2, 1)

	// IDs and detection timestamps are assigned fresh on every call; strip
	// them before comparing the deterministic fields.
	opps1[0].ID, opps2[0].ID = "", ""
	opps1[0].DetectedAt, opps2[0].DetectedAt = time.Time{}, time.Time{}
	assert.Equal(t, opps1, opps2)
}

func TestDetect_DegenerateSingleBookArb(t *testing.T) {
	event := h2hEvent("A", "B", map[string][2]float64{
		"bookA": {2.5, 2.5},
		"bookB": {1.5, 1.5},
	})
	opps := detector.Detect([]models.Event{event}, cfg(), time.Now())
	require.Len(t, opps, 1)
	assert.Equal(t, "bookA", opps[0].Legs[0].BookmakerKey)
}

func sumStakes(o models.Opportunity) float64 {
	var s float64
	for _, l := range o.Legs {
		s += l.StakeShare
	}
	return s
}
