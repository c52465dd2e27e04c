package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
)

// BuildShare values an equity-like instrument (shares, fund units,
// depositary receipts) from its deals and manually tracked payments.
// Deals must be sorted by trade date. A nil asOf values at the current
// market price; otherwise at the session close for that date.
func (b *Builder) BuildShare(ctx context.Context, secid string, deals []models.Deal,
	payments []models.Payment, asOf *time.Time) (*models.SecurityReport, error) {

	spec, err := b.lookupSpec(ctx, secid)
	if err != nil {
		return nil, err
	}

	s := newSecurity(secid, spec, deals)
	if err := s.processDeals(); err != nil {
		return nil, err
	}

	var currPrice float64
	if asOf == nil {
		info, err := b.quotes.Info(ctx, spec.Mainboard)
		if err != nil {
			return nil, fmt.Errorf("board info %s: %w", secid, err)
		}
		currPrice = info.Marketdata["LAST"]
	} else {
		rec, err := b.quotes.OnDate(ctx, spec.Mainboard, *asOf)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", secid, err)
		}
		currPrice = rec.Close
	}

	secType := models.TypeShare
	if len(deals) > 0 {
		secType = deals[0].SecurityType
	}

	rep := s.baseReport(secType, currPrice)

	// Dividends routed to an external account never hit the broker's cash
	// ledger, so income comes from the manually maintained payment sheet.
	var dividends float64
	for _, p := range payments {
		dividends += p.Actually
	}
	rep.Dividends = common.Round2(dividends)

	rep.TotalReturn = common.Round2(
		rep.ClosedDealsReturn + rep.ExchangeGain + rep.Dividends - rep.TotalCommissions)
	rep.CurrentValue = common.Round2(s.quantity * currPrice)

	flows := dealFlows(deals)
	for _, p := range payments {
		flows = append(flows, CashFlow{Date: p.Date, Amount: p.Actually})
	}
	// An open position is treated as sold at the current price on the
	// evaluation instant.
	if s.quantity > 0 {
		flows = append(flows, CashFlow{Date: b.instant(asOf), Amount: s.quantity * currPrice})
	}
	b.finishXIRR(rep, flows)

	return rep, nil
}
