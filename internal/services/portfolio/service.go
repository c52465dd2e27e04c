// Package portfolio builds point-in-time valuations of a brokerage
// account from its deal, operation and payment history.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/interfaces"
	"github.com/ivstorm/folio/internal/models"
	"github.com/ivstorm/folio/internal/services/valuation"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService
type Service struct {
	store   interfaces.PortfolioStore
	quotes  interfaces.QuoteClient
	builder *valuation.Builder
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewService creates a new portfolio service. couponTaxRate is passed
// through to bond valuation.
func NewService(store interfaces.PortfolioStore, quotes interfaces.QuoteClient,
	logger *common.Logger, couponTaxRate float64) *Service {
	return &Service{
		store:   store,
		quotes:  quotes,
		builder: valuation.NewBuilder(quotes, logger, couponTaxRate),
		logger:  logger,
		now:     time.Now,
	}
}

// Build loads the named portfolio from the store and values it.
func (s *Service) Build(ctx context.Context, name string, asOf *time.Time) (*models.Snapshot, error) {
	stored, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("portfolio %q: %w", name, err)
	}

	snap, err := s.BuildSnapshot(ctx, stored.Deals, stored.Operations, stored.Payments, asOf)
	if err != nil {
		return nil, fmt.Errorf("portfolio %q: %w", name, err)
	}
	snap.Name = name

	return snap, nil
}

// BuildSnapshot values a record set. With asOf set, records after that
// date are dropped first and all price lookups use that date; the
// result is a historical reconstruction.
func (s *Service) BuildSnapshot(ctx context.Context, deals []models.Deal,
	operations []models.Operation, payments []models.Payment, asOf *time.Time) (*models.Snapshot, error) {

	if asOf != nil {
		deals = filterDeals(deals, *asOf)
		operations = filterOperations(operations, *asOf)
		payments = filterPayments(payments, *asOf)
	}

	snap := &models.Snapshot{
		AsOf:    asOf,
		BuiltAt: s.now(),
		Shares:  map[string]*models.SecurityReport{},
		Bonds:   map[string]*models.SecurityReport{},
	}

	if err := s.valueSecurities(ctx, snap, deals, payments, asOf); err != nil {
		return nil, err
	}

	cashValue, err := s.reconcileCash(snap, operations, deals)
	if err != nil {
		return nil, err
	}

	snap.Lifetime = lifetimeDays(operations, s.instant(asOf))
	rollupMarketValue(snap, cashValue)
	rollupReturn(snap)
	s.rollupVolumes(snap, deals)
	s.portfolioXIRR(snap, operations, payments, asOf)

	return snap, nil
}

// valueSecurities fans out one valuation per distinct instrument and
// waits for all of them. Instruments the quote source cannot resolve are
// flagged and skipped; categorical input errors abort the build.
func (s *Service) valueSecurities(ctx context.Context, snap *models.Snapshot,
	deals []models.Deal, payments []models.Payment, asOf *time.Time) error {

	dealsBySec := map[string][]models.Deal{}
	paymentsBySec := map[string][]models.Payment{}
	types := map[string]models.SecurityType{}
	var order []string

	for _, deal := range deals {
		if _, seen := types[deal.SecID]; !seen {
			types[deal.SecID] = deal.SecurityType
			order = append(order, deal.SecID)
		}
		dealsBySec[deal.SecID] = append(dealsBySec[deal.SecID], deal)
	}
	for _, p := range payments {
		paymentsBySec[p.SecID] = append(paymentsBySec[p.SecID], p)
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, secid := range order {
		secid := secid
		secType := types[secid]

		g.Go(func() error {
			rep, err := s.valueSecurity(gctx, secid, secType, dealsBySec[secid], paymentsBySec[secid], asOf)
			if err != nil {
				if isFatal(err) {
					return err
				}
				s.logger.Warn().Str("secid", secid).Err(err).Msg("Skipping unresolvable security")
				mu.Lock()
				snap.Skipped = append(snap.Skipped, models.SkippedSecurity{SecID: secid, Reason: err.Error()})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			if rep.Type == models.TypeBond {
				snap.Bonds[secid] = rep
			} else {
				snap.Shares[secid] = rep
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(snap.Skipped, func(i, j int) bool {
		return snap.Skipped[i].SecID < snap.Skipped[j].SecID
	})
	return nil
}

func (s *Service) valueSecurity(ctx context.Context, secid string, secType models.SecurityType,
	deals []models.Deal, payments []models.Payment, asOf *time.Time) (*models.SecurityReport, error) {

	switch {
	case secType.IsEquity():
		return s.builder.BuildShare(ctx, secid, deals, payments, asOf)
	case secType == models.TypeBond:
		return s.builder.BuildBond(ctx, secid, deals, asOf)
	default:
		return nil, &models.UnhandledSecurityTypeError{SecID: secid, Type: secType}
	}
}

// isFatal reports whether a valuation error indicates categorical input
// corruption, which must abort the whole build rather than drop the
// instrument.
func isFatal(err error) bool {
	var opErr *models.UnhandledOperationError
	var secErr *models.UnhandledSecurityTypeError
	return errors.As(err, &opErr) ||
		errors.As(err, &secErr) ||
		errors.Is(err, valuation.ErrFIFOUnderflow)
}

// instant resolves the evaluation time: asOf when given, otherwise now.
func (s *Service) instant(asOf *time.Time) time.Time {
	if asOf != nil {
		return *asOf
	}
	return s.now()
}

// lifetimeDays counts days from the first operation to the evaluation
// instant, rounded to the nearest whole day.
func lifetimeDays(operations []models.Operation, instant time.Time) int {
	if len(operations) == 0 {
		return 0
	}
	first := operations[0].Date
	for _, op := range operations {
		if op.Date.Before(first) {
			first = op.Date
		}
	}
	days := instant.Sub(first).Hours() / 24
	return int(common.RoundTo(days, 0))
}

func filterDeals(deals []models.Deal, asOf time.Time) []models.Deal {
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if !d.Date.After(asOf) {
			out = append(out, d)
		}
	}
	return out
}

func filterOperations(operations []models.Operation, asOf time.Time) []models.Operation {
	out := make([]models.Operation, 0, len(operations))
	for _, op := range operations {
		if !op.Date.After(asOf) {
			out = append(out, op)
		}
	}
	return out
}

func filterPayments(payments []models.Payment, asOf time.Time) []models.Payment {
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if !p.Date.After(asOf) {
			out = append(out, p)
		}
	}
	return out
}
