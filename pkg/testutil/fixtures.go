// Package testutil provides golden event fixtures covering spec §8's
// concrete scenarios (checked against the detector in fixtures_test.go),
// plus small Sport and Opportunity builders.
package testutil

import (
	"time"

	"github.com/fortuna-sports/arbiter/pkg/models"
)

func ptr(v float64) *float64 { return &v }

// Classic2WayArbEvent is spec §8 scenario 1: Chiefs vs Bills, h2h, BookA
// quotes {Chiefs: +150, Bills: -180}, BookB quotes {Chiefs: +120, Bills:
// +110}. Best prices: Chiefs from BookA (d=2.5), Bills from BookB
// (d=2.10); sum ~= 0.87619, profit_pct ~= 14.13%.
func Classic2WayArbEvent() models.Event {
	return models.Event{
		SportKey:     "americanfootball_nfl",
		CommenceTime: time.Now().Add(2 * time.Hour),
		HomeTeam:     "Chiefs",
		AwayTeam:     "Bills",
		Bookmakers: []models.Bookmaker{
			{
				Key:        "bookA",
				Title:      "Book A",
				LastUpdate: time.Now(),
				Markets: []models.MarketQuote{{
					MarketKey: "h2h",
					Outcomes: []models.Outcome{
						{Name: "Chiefs", Price: 2.5},       // +150
						{Name: "Bills", Price: 1 + 100.0/180}, // -180
					},
				}},
			},
			{
				Key:        "bookB",
				Title:      "Book B",
				LastUpdate: time.Now(),
				Markets: []models.MarketQuote{{
					MarketKey: "h2h",
					Outcomes: []models.Outcome{
						{Name: "Chiefs", Price: 2.2},  // +120
						{Name: "Bills", Price: 2.10}, // +110
					},
				}},
			},
		},
	}
}

// NoArbEvent is spec §8 scenario 2: both books quote {A: -110, B: -110};
// best decimal on each side is the same 1.9091, sum ~= 1.0476, no
// opportunity.
func NoArbEvent() models.Event {
	d := 1 + 100.0/110
	mkBook := func(key string) models.Bookmaker {
		return models.Bookmaker{
			Key: key,
			Markets: []models.MarketQuote{{
				MarketKey: "h2h",
				Outcomes: []models.Outcome{
					{Name: "A", Price: d},
					{Name: "B", Price: d},
				},
			}},
		}
	}
	return models.Event{
		SportKey:     "americanfootball_nfl",
		CommenceTime: time.Now().Add(2 * time.Hour),
		HomeTeam:     "A",
		AwayTeam:     "B",
		Bookmakers:   []models.Bookmaker{mkBook("bookA"), mkBook("bookB")},
	}
}

// SpreadsAsymmetricLinesEvent is spec §8 scenario 3: BookA quotes the
// symmetric -2.5/+2.5 line, BookB quotes the symmetric -3.0/+3.0 line; the
// detector must never cross-pair -2.5 from BookA with +3.0 from BookB.
func SpreadsAsymmetricLinesEvent() models.Event {
	p25, p25n, p30, p30n := 2.5, -2.5, 3.0, -3.0
	return models.Event{
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
						{Name: "A", Price: 1 + 100.0/110, Point: ptr(p25n)},
						{Name: "B", Price: 1 + 100.0/110, Point: ptr(p25)},
					},
				}},
			},
			{
				Key: "bookB",
				Markets: []models.MarketQuote{{
					MarketKey: "spreads",
					Outcomes: []models.Outcome{
						{Name: "A", Price: 2.0, Point: ptr(p30n)},
						{Name: "B", Price: 1 + 100.0/120, Point: ptr(p30)},
					},
				}},
			},
		},
	}
}

// NewSport builds a minimal catalogue entry.
func NewSport(key, title string, active bool) models.Sport {
	return models.Sport{
		Key:         key,
		Group:       "test group",
		Title:       title,
		Active:      active,
		HasOutcomes: active,
	}
}

// NewOpportunity builds a minimal, already-complete Opportunity.
func NewOpportunity(sport, market string, detectedAt time.Time, profitPct float64) models.Opportunity {
	return models.Opportunity{
		ID:                      sport + "-" + market,
		SportKey:                sport,
		CommenceTime:            time.Now().Add(2 * time.Hour),
		HomeTeam:                "Home",
		AwayTeam:                "Away",
		MarketKey:               market,
		TotalImpliedProbability: 1 / (1 + profitPct/100),
		ProfitPct:               profitPct,
		DetectedAt:              detectedAt,
		Legs: []models.Leg{
			{OutcomeName: "Home", BookmakerKey: "bookA", DecimalPrice: 2.5, ImpliedProbability: 0.4, StakeShare: 0.5},
			{OutcomeName: "Away", BookmakerKey: "bookB", DecimalPrice: 2.1, ImpliedProbability: 0.47619, StakeShare: 0.5},
		},
	}
}
