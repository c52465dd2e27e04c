package interfaces

import (
	"context"

	"github.com/ivstorm/folio/internal/models"
)

// PortfolioStore persists named portfolios.
type PortfolioStore interface {
	Save(ctx context.Context, p *models.StoredPortfolio) error
	Get(ctx context.Context, name string) (*models.StoredPortfolio, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}
