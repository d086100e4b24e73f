package contracts

import (
	"context"
	"time"

	"github.com/fortuna-sports/arbiter/pkg/models"
)

// ListOpportunitiesQuery filters historical and current opportunity reads.
type ListOpportunitiesQuery struct {
	Sport        string // empty = all
	MinProfitPct float64
	Since        time.Time // zero = no lower bound
	Limit        int       // capped at 500 by implementations
}

// Store is the durable persistence contract of component B.
type Store interface {
	// ReplaceLatest atomically swaps the latest_events snapshot.
	ReplaceLatest(ctx context.Context, events []models.Event) error

	// ListLatest returns the current snapshot, optionally filtered by sport.
	ListLatest(ctx context.Context, sport string) ([]models.Event, error)

	// AppendOpportunities appends new rows, skipping any whose minute-bucket
	// fingerprint already exists.
	AppendOpportunities(ctx context.Context, ops []models.Opportunity) error

	// ListOpportunities answers a filtered, limited read.
	ListOpportunities(ctx context.Context, q ListOpportunitiesQuery) ([]models.Opportunity, error)

	// PurgeOpportunities deletes rows detected before olderThan.
	PurgeOpportunities(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}
