package interfaces

import (
	"context"
	"time"

	"github.com/ivstorm/folio/internal/models"
)

// PortfolioService builds point-in-time valuations of stored portfolios.
type PortfolioService interface {
	// Build loads the named portfolio and values it. A nil asOf means "now";
	// otherwise all records dated after asOf are ignored and prices are
	// looked up for that date.
	Build(ctx context.Context, name string, asOf *time.Time) (*models.Snapshot, error)

	// BuildSnapshot values an in-memory record set without touching the store.
	BuildSnapshot(ctx context.Context, deals []models.Deal, operations []models.Operation,
		payments []models.Payment, asOf *time.Time) (*models.Snapshot, error)
}

// RecordImporter parses broker-report exports into typed records,
// oldest-first.
type RecordImporter interface {
	Deals(path string) ([]models.Deal, error)
	Operations(path string) ([]models.Operation, error)
	Payments(path string) ([]models.Payment, error)
}
