package contracts

import (
	"context"

	"github.com/fortuna-sports/arbiter/pkg/models"
)

// OddsClient is the façade over the upstream odds feed (component C).
type OddsClient interface {
	// ListSports returns the upstream sport catalogue.
	ListSports(ctx context.Context) ([]models.Sport, error)

	// GetOdds issues one request for sportKey and returns its normalised
	// events plus the quota snapshot observed from the response headers.
	GetOdds(ctx context.Context, sportKey string) ([]models.Event, models.QuotaSnapshot, error)
}
