// Package valuation prices single instruments from their deal history:
// FIFO lot accounting, realized and unrealized gains, commission and
// income totals, and the per-instrument money-weighted return.
package valuation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/interfaces"
	"github.com/ivstorm/folio/internal/models"
)

// Builder values instruments against a quote source. Safe for
// concurrent use; each Build* call keeps all mutable state local.
type Builder struct {
	quotes        interfaces.QuoteClient
	logger        *common.Logger
	couponTaxRate float64
	now           func() time.Time // injectable clock for testing
}

// NewBuilder creates a valuation builder. couponTaxRate is the
// withholding applied to bond coupons (0.13 = 13%).
func NewBuilder(quotes interfaces.QuoteClient, logger *common.Logger, couponTaxRate float64) *Builder {
	return &Builder{
		quotes:        quotes,
		logger:        logger,
		couponTaxRate: couponTaxRate,
		now:           time.Now,
	}
}

// instant resolves the evaluation time: asOf when given, otherwise now.
func (b *Builder) instant(asOf *time.Time) time.Time {
	if asOf != nil {
		return *asOf
	}
	return b.now()
}

// security is the per-instrument accounting state shared by the share
// and bond variants. It lives for one Build call only.
type security struct {
	secid    string
	spec     *models.SecuritySpec
	deals    []models.Deal
	fifo     lotQueue
	quantity float64

	closedDealsReturn float64
}

func newSecurity(secid string, spec *models.SecuritySpec, deals []models.Deal) *security {
	return &security{secid: secid, spec: spec, deals: deals}
}

// processDeals folds the deal sequence (non-decreasing trade-date order)
// into the FIFO queue, realizing gains on each sell.
func (s *security) processDeals() error {
	for _, deal := range s.deals {
		s.quantity += deal.Quantity

		switch deal.Side {
		case models.SideBuy:
			s.fifo.push(deal.Quantity, deal.Price)

		case models.SideSell:
			remainder := math.Abs(deal.Quantity)
			for remainder > 0 {
				front, ok := s.fifo.front()
				if !ok {
					return fmt.Errorf("secid %s: %w", s.secid, ErrFIFOUnderflow)
				}
				if front.quantity <= remainder {
					s.realize(front.quantity, front.price, deal.Price)
					remainder -= front.quantity
					s.fifo.popFront()
				} else {
					s.realize(remainder, front.price, deal.Price)
					s.fifo.reduceFront(remainder)
					remainder = 0
				}
			}

		default:
			return &models.UnhandledOperationError{Op: string(deal.Side)}
		}
	}
	return nil
}

// realize books the gain of closing quantity at closePrice against a lot
// opened at openPrice, rounded to the venue's price precision.
func (s *security) realize(quantity, openPrice, closePrice float64) {
	s.closedDealsReturn += common.RoundTo(quantity*(closePrice-openPrice), s.spec.Mainboard.Decimals)
}

// baseReport fills the variant-independent part of the valuation.
func (s *security) baseReport(secType models.SecurityType, currPrice float64) *models.SecurityReport {
	decimals := s.spec.Mainboard.Decimals

	rep := &models.SecurityReport{
		SecID:             s.secid,
		Name:              s.spec.Name,
		ShortName:         s.spec.ShortName,
		ISIN:              s.spec.ISIN,
		Type:              secType,
		Quantity:          s.quantity,
		CurrentPrice:      currPrice,
		ClosedDealsReturn: s.closedDealsReturn,
	}

	if s.quantity > 0 {
		if avg, ok := s.fifo.avgOpenPrice(); ok {
			rep.AvgPrice = common.RoundTo(avg, decimals)
		}
		if rep.AvgPrice > 0 {
			rep.ExchangeGain = common.RoundTo((currPrice-rep.AvgPrice)*s.quantity, decimals)
			rep.ExchangeGainRelative = common.RoundTo((currPrice/rep.AvgPrice-1)*100, decimals)
		}
	}

	var commissions float64
	for _, deal := range s.deals {
		commissions += deal.BrokerCommission + deal.TradingSystemCommission
	}
	rep.TotalCommissions = common.Round2(commissions)

	return rep
}

// dealFlows converts deals into signed XIRR flows: buys are money out,
// sells money in, dated at trade date.
func dealFlows(deals []models.Deal) []CashFlow {
	flows := make([]CashFlow, 0, len(deals))
	for _, deal := range deals {
		amount := deal.Volume
		if deal.Side == models.SideBuy {
			amount = -amount
		}
		flows = append(flows, CashFlow{Date: deal.Date, Amount: amount})
	}
	return flows
}

// finishXIRR tallies turnover over the assembled flows (the synthetic
// terminal flow counts as sell volume, matching the return-rate base),
// then solves for the annualized rate. Non-convergence is recorded as an
// undefined rate, never an error: one unsolvable instrument must not
// abort a portfolio build.
func (b *Builder) finishXIRR(rep *models.SecurityReport, flows []CashFlow) {
	var buy, sell float64
	for _, f := range flows {
		if f.Amount > 0 {
			sell += f.Amount
		} else {
			buy += -f.Amount
		}
	}
	rep.TotalVolumeBuy = buy
	rep.TotalVolumeSell = sell
	if buy > 0 {
		rep.TotalReturnRate = common.Round2((sell/buy - 1) * 100)
	}

	rate, err := SolveXIRR(flows)
	if err != nil {
		b.logger.Warn().Str("secid", rep.SecID).Err(err).Msg("Failed to calc XIRR")
		rep.XIRR = models.UndefinedRate()
		return
	}
	rep.XIRR = models.DefinedRate(common.Round2(rate * 100))
}

// lookupSpec resolves the instrument spec, wrapping the not-found case.
func (b *Builder) lookupSpec(ctx context.Context, secid string) (*models.SecuritySpec, error) {
	spec, err := b.quotes.Spec(ctx, secid)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", secid, err)
	}
	return spec, nil
}
