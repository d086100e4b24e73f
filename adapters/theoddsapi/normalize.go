package theoddsapi

import (
	"sort"
	"time"

	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
	"github.com/fortuna-sports/arbiter/pkg/prices"
)

// parseOddsResponse converts the upstream wire shape into normalised
// Events. Prices are converted from the upstream's American format into
// the canonical decimal representation at this boundary (spec §4.C).
func parseOddsResponse(resp []oddsResponse, sportKey string) ([]models.Event, error) {
	events := make([]models.Event, 0, len(resp))

	for _, raw := range resp {
		commenceTime, err := parseUTC(raw.CommenceTime)
		if err != nil {
			return nil, oddserr.InvalidPayload("event commence_time", err)
		}

		bookmakers := make([]models.Bookmaker, 0, len(raw.Bookmakers))
		for _, bm := range raw.Bookmakers {
			lastUpdate, err := parseUTC(bm.LastUpdate)
			if err != nil {
				lastUpdate = commenceTime
			}

			quotes := make([]models.MarketQuote, 0, len(bm.Markets))
			for _, mkt := range bm.Markets {
				if len(mkt.Outcomes) < 2 {
					// A bookmaker whose markets list contains an entry with
					// fewer than two outcomes is dropped for that market.
					continue
				}

				mktLastUpdate, err := parseUTC(mkt.LastUpdate)
				if err != nil {
					mktLastUpdate = lastUpdate
				}

				outcomes := make([]models.Outcome, 0, len(mkt.Outcomes))
				for _, o := range mkt.Outcomes {
					decimal, err := prices.AmericanToDecimal(o.Price)
					if err != nil {
						// InvalidPrice: drop the offending outcome, keep the rest.
						continue
					}
					outcomes = append(outcomes, models.Outcome{
						Name:  o.Name,
						Price: decimal,
						Point: o.Point,
					})
				}
				if len(outcomes) < 2 {
					continue
				}

				sortOutcomes(outcomes)
				quotes = append(quotes, models.MarketQuote{
					MarketKey:  mkt.Key,
					LastUpdate: mktLastUpdate,
					Outcomes:   outcomes,
				})
			}

			bookmakers = append(bookmakers, models.Bookmaker{
				Key:        bm.Key,
				Title:      bm.Title,
				LastUpdate: lastUpdate,
				Markets:    quotes,
			})
		}

		events = append(events, models.Event{
			SportKey:     sportKey,
			CommenceTime: commenceTime,
			HomeTeam:     raw.HomeTeam,
			AwayTeam:     raw.AwayTeam,
			Bookmakers:   bookmakers,
		})
	}

	return events, nil
}

// sortOutcomes produces a stable ordering: by name, or by (name, point)
// when a point is present.
func sortOutcomes(outcomes []models.Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].Name != outcomes[j].Name {
			return outcomes[i].Name < outcomes[j].Name
		}
		pi, pj := pointOf(outcomes[i]), pointOf(outcomes[j])
		return pi < pj
	})
}

func pointOf(o models.Outcome) float64 {
	if o.Point == nil {
		return 0
	}
	return *o.Point
}

// parseUTC parses an RFC3339 timestamp, rejecting naive local times (no
// zone offset).
func parseUTC(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
