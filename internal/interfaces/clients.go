// Package interfaces defines service contracts for folio
package interfaces

import (
	"context"
	"time"

	"github.com/ivstorm/folio/internal/models"
)

// QuoteClient resolves instruments against a market-data source.
// Implementations cache by SecID for the life of the process: the data is
// derived purely from the instrument id, so racing fetches for the same key
// are safe to run redundantly.
type QuoteClient interface {
	// Spec returns the static description and mainboard of an instrument.
	// Returns ErrInstrumentNotFound (see clients/moex) for unknown ids.
	Spec(ctx context.Context, secid string) (*models.SecuritySpec, error)

	// Info returns the current session fields for a board.
	Info(ctx context.Context, board models.Mainboard) (*models.BoardInfo, error)

	// OnDate returns the historical session record at the given date.
	OnDate(ctx context.Context, board models.Mainboard, date time.Time) (*models.HistoryRecord, error)

	// Coupons returns the coupon/amortization calendar for a bond.
	Coupons(ctx context.Context, board models.Mainboard) (*models.BondSchedule, error)
}
