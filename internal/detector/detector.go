// Package detector is the algorithmic core of component D: given a set of
// normalised events, it computes per-market arbitrage opportunities and
// stake splits. Pure over its input — no I/O. Grounded on the
// orchestration shape of other_examples' edge-detector engine and the
// vig-removal math in Agentchow's internal/core/odds/vig.go.
package detector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna-sports/arbiter/internal/markets"
	"github.com/fortuna-sports/arbiter/internal/telemetry"
	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/prices"
)

const defaultMinBooks = 2

// Config parameterises a detection pass.
type Config struct {
	Markets      []string
	MinProfitPct float64
	MinBooks     int    // defaults to 2 when zero
	OddsFormat   string // display format applied to Leg.Price; defaults to american
}

func (c Config) minBooks() int {
	if c.MinBooks <= 0 {
		return defaultMinBooks
	}
	return c.MinBooks
}

// Detect evaluates every configured market of every event and returns all
// opportunities meeting cfg.MinProfitPct, sorted by profit_pct descending
// then by event fingerprint for stability.
func Detect(events []models.Event, cfg Config, now time.Time) []models.Opportunity {
	var out []models.Opportunity

	for _, e := range events {
		if !e.CommenceTime.After(now) {
			continue // past events are filtered before detection
		}
		for _, m := range cfg.Markets {
			out = append(out, detectMarket(e, m, cfg, now)...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProfitPct != out[j].ProfitPct {
			return out[i].ProfitPct > out[j].ProfitPct
		}
		return out[i].EventFingerprint() < out[j].EventFingerprint()
	})
	return out
}

type bookPrice struct {
	bookKey string
	decimal float64
	point   *float64
}

// detectMarket evaluates one (event, market) pair, returning every
// emitted opportunity (normally zero or one per distinct line).
func detectMarket(e models.Event, marketKey string, cfg Config, now time.Time) []models.Opportunity {
	quotesByBook := make(map[string]models.MarketQuote)
	for _, bm := range e.Bookmakers {
		for _, mq := range bm.Markets {
			if mq.MarketKey != marketKey {
				continue
			}
			if reason, ok := validateQuote(mq); !ok {
				telemetry.Warnf("detector: dropping %s %s quote for %s vs %s (%s): %s",
					bm.Key, marketKey, e.HomeTeam, e.AwayTeam, e.SportKey, reason)
				continue
			}
			quotesByBook[bm.Key] = mq
		}
	}

	if len(quotesByBook) < cfg.minBooks() {
		return nil
	}

	hasPoint := markets.HasPoint(marketKey)
	groups := groupByLine(quotesByBook, hasPoint, marketKey)

	var opps []models.Opportunity
	for _, g := range groups {
		opp, ok := evaluateGroup(e, marketKey, g, cfg, now)
		if ok {
			opps = append(opps, opp)
		}
	}
	return opps
}

// validateQuote checks every outcome carries a finite, positive decimal
// price. A single bad outcome drops the whole quote (edge policy:
// NaN/non-positive prices drop the offending bookmaker's market).
func validateQuote(mq models.MarketQuote) (string, bool) {
	for _, o := range mq.Outcomes {
		if math.IsNaN(o.Price) || o.Price <= 0 {
			return "invalid price for outcome " + o.Name, false
		}
	}
	return "", true
}

type lineGroup struct {
	byOutcome  map[string][]bookPrice
	pointByKey map[string]*float64
}

// groupByLine partitions a market's quotes into independent line groups.
// h2h has a single group. spreads group by |point| (so "-2.5"/"+2.5" from
// the same book share a group while a different book's "-3.0"/"+3.0" line
// forms its own, independent group). totals group by the literal point
// (Over/Under share the same line value). Grouping compares points within
// 1e-9 by quantising to nanosecond-equivalent precision.
func groupByLine(quotesByBook map[string]models.MarketQuote, hasPoint bool, marketKey string) []lineGroup {
	groups := make(map[string]*lineGroup)

	order := make([]string, 0, len(quotesByBook))
	for bookKey := range quotesByBook {
		order = append(order, bookKey)
	}
	sort.Strings(order)

	for _, bookKey := range order {
		mq := quotesByBook[bookKey]
		for _, o := range mq.Outcomes {
			lineKey := ""
			if hasPoint && o.Point != nil {
				p := *o.Point
				if marketKey == markets.Spreads {
					p = math.Abs(p)
				}
				lineKey = formatLineKey(p)
			}

			g, ok := groups[lineKey]
			if !ok {
				g = &lineGroup{byOutcome: make(map[string][]bookPrice), pointByKey: make(map[string]*float64)}
				groups[lineKey] = g
			}

			g.byOutcome[o.Name] = append(g.byOutcome[o.Name], bookPrice{bookKey: bookKey, decimal: o.Price, point: o.Point})
			g.pointByKey[o.Name] = o.Point
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]lineGroup, 0, len(groups))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	return out
}

func formatLineKey(p float64) string {
	return fmt.Sprintf("%.9f", math.Round(p*1e9)/1e9)
}

// evaluateGroup picks the best price per outcome key within one line
// group and emits an Opportunity if the resulting sum of implied
// probabilities is below 1.0 and clears cfg.MinProfitPct.
func evaluateGroup(e models.Event, marketKey string, g lineGroup, cfg Config, now time.Time) (models.Opportunity, bool) {
	if len(g.byOutcome) < 2 {
		return models.Opportunity{}, false
	}

	names := make([]string, 0, len(g.byOutcome))
	for name := range g.byOutcome {
		names = append(names, name)
	}
	sort.Strings(names)

	legs := make([]models.Leg, 0, len(names))
	rawProbs := make([]float64, 0, len(names)) // unrounded p_k, kept alongside legs for a single final rounding of StakeShare
	sum := 0.0

	for _, name := range names {
		candidates := g.byOutcome[name]
		if len(candidates) == 0 {
			return models.Opportunity{}, false // incomplete coverage
		}

		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.decimal > best.decimal || (c.decimal == best.decimal && c.bookKey < best.bookKey) {
				best = c
			}
		}

		p, err := prices.DecimalToImpliedProb(best.decimal)
		if err != nil {
			return models.Opportunity{}, false
		}
		sum += p
		rawProbs = append(rawProbs, p)

		legs = append(legs, models.Leg{
			OutcomeName:        name,
			Point:              g.pointByKey[name],
			BookmakerKey:       best.bookKey,
			Price:              displayPrice(best.decimal, cfg.OddsFormat),
			DecimalPrice:       best.decimal,
			ImpliedProbability: prices.RoundProbability(p),
		})
	}

	if sum >= 1.0 {
		return models.Opportunity{}, false
	}

	profitPct := prices.RoundMoney((1/sum - 1) * 100)
	if profitPct < cfg.MinProfitPct {
		return models.Opportunity{}, false
	}

	// StakeShare is p_k/sum computed from the raw (unrounded) probability and
	// rounded exactly once here — dividing the already-rounded
	// ImpliedProbability would compound two roundings and drift the legs'
	// stake shares away from summing to 1.0.
	for i := range legs {
		legs[i].StakeShare = prices.RoundProbability(rawProbs[i] / sum)
	}

	return models.Opportunity{
		ID:                      uuid.NewString(),
		SportKey:                e.SportKey,
		CommenceTime:            e.CommenceTime,
		HomeTeam:                e.HomeTeam,
		AwayTeam:                e.AwayTeam,
		MarketKey:               marketKey,
		Legs:                    legs,
		TotalImpliedProbability: prices.RoundProbability(sum),
		ProfitPct:               profitPct,
		DetectedAt:              now,
	}, true
}

// displayPrice renders a canonical decimal price in the configured output
// format. Unrecognised formats (and decimal itself) fall through to the
// decimal value unchanged.
func displayPrice(decimal float64, format string) float64 {
	switch format {
	case "american", "":
		if american, err := prices.DecimalToAmerican(decimal); err == nil {
			return american
		}
	case "fractional":
		if num, den, err := prices.DecimalToFractional(decimal); err == nil {
			return float64(num) / float64(den)
		}
	}
	return decimal
}
