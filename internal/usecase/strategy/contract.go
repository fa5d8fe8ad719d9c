package strategy

import (
	"context"

	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
)

// Repository defines the storage contract for strategy lifecycle operations.
type Repository interface {
	Create(ctx context.Context, s domstrat.Strategy) error
	Get(ctx context.Context, id string) (domstrat.Strategy, error)
	List(ctx context.Context) ([]domstrat.Strategy, error)
	Update(ctx context.Context, s domstrat.Strategy) error
	Delete(ctx context.Context, id string) error
	GetDefault(ctx context.Context) (domstrat.Strategy, error)
	SetDefault(ctx context.Context, id string) error
}
