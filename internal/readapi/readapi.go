// Package readapi is component F: the minimal read/refresh surface an
// external HTTP layer (out of scope here, per spec §1/§6) calls into. It
// has no direct teacher analogue — Mercury shipped no read API — and is
// built straight from spec §4.F's six operations, composing the store,
// scheduler, and sport registry. All reads are non-blocking relative to
// the scheduler.
package readapi

import (
	"context"
	"time"

	"github.com/fortuna-sports/arbiter/internal/cache"
	"github.com/fortuna-sports/arbiter/internal/registry"
	"github.com/fortuna-sports/arbiter/internal/scheduler"
	"github.com/fortuna-sports/arbiter/pkg/contracts"
	"github.com/fortuna-sports/arbiter/pkg/models"
)

const defaultLimit = 100

// Status is the shape returned by the status() operation.
type Status struct {
	Configured []string // configured/allow-listed sport keys
	LastRun    scheduler.LastRun
	Quota      models.QuotaSnapshot
}

// API is the read surface consumed by the HTTP layer.
type API struct {
	store    contracts.Store
	sched    *scheduler.Scheduler
	registry *registry.SportRegistry
	cache    *cache.Cache // optional read accelerator; nil reads go straight to the store
}

// New constructs the read surface over its collaborators. cacheLayer may be
// nil, in which case every read goes straight to the store.
func New(store contracts.Store, sched *scheduler.Scheduler, reg *registry.SportRegistry, cacheLayer *cache.Cache) *API {
	return &API{store: store, sched: sched, registry: reg, cache: cacheLayer}
}

// CurrentOpportunities returns the most recently detected opportunities,
// optionally filtered by sport and a minimum profit threshold.
func (a *API) CurrentOpportunities(ctx context.Context, sport string, minProfitPct float64, limit int) ([]models.Opportunity, error) {
	return a.store.ListOpportunities(ctx, contracts.ListOpportunitiesQuery{
		Sport:        sport,
		MinProfitPct: minProfitPct,
		Limit:        normalizeLimit(limit),
	})
}

// HistoricalOpportunities returns opportunities detected at or after
// since, optionally filtered by sport.
func (a *API) HistoricalOpportunities(ctx context.Context, since time.Time, sport string, limit int) ([]models.Opportunity, error) {
	return a.store.ListOpportunities(ctx, contracts.ListOpportunitiesQuery{
		Sport: sport,
		Since: since,
		Limit: normalizeLimit(limit),
	})
}

// LatestOdds returns the current latest-events snapshot, optionally
// filtered by sport. A full (unfiltered) snapshot is served from the cache
// when present — the cache is write-through from the scheduler, so a miss
// just means the cache is cold or unconfigured, and falls straight back to
// the store.
func (a *API) LatestOdds(ctx context.Context, sport string) ([]models.Event, error) {
	if a.cache != nil {
		if events, ok := a.cache.GetLatestEvents(ctx); ok {
			if sport == "" {
				return events, nil
			}
			filtered := make([]models.Event, 0, len(events))
			for _, e := range events {
				if e.SportKey == sport {
					filtered = append(filtered, e)
				}
			}
			return filtered, nil
		}
	}
	return a.store.ListLatest(ctx, sport)
}

// Status reports the configured sports, the scheduler's last_run record,
// and the last-observed quota snapshot. The scheduler keeps its own
// in-memory copies of last_run/quota (single-writer, many-reader per
// spec §5), so those are read straight from it; neither is held in the
// cache, which stores only the latest-events snapshot.
func (a *API) Status() Status {
	return Status{
		Configured: a.registry.Keys(),
		LastRun:    a.sched.LastRun(),
		Quota:      a.sched.Quota(),
	}
}

// TriggerRefresh starts a refresh cycle (or piggybacks on one already in
// flight) and waits for its RefreshResult, per the scheduler contract.
func (a *API) TriggerRefresh(ctx context.Context) (scheduler.RefreshResult, error) {
	return a.sched.Trigger(ctx)
}

// Sports returns the current catalogue snapshot.
func (a *API) Sports() []models.Sport {
	return a.registry.All()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
