package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
)

// BuildBond values a bond from its deals and the exchange's coupon and
// amortization schedule. Payment-sheet records are ignored for bonds:
// coupon and redemption income is reconstructed from exchange data.
// Deals must be sorted by trade date.
func (b *Builder) BuildBond(ctx context.Context, secid string, deals []models.Deal,
	asOf *time.Time) (*models.SecurityReport, error) {

	spec, err := b.lookupSpec(ctx, secid)
	if err != nil {
		return nil, err
	}

	// Broker reports quote bond prices in percent of face value. Rescale
	// once up front so every downstream formula works in currency.
	faceValue := spec.FaceValue
	scaled := make([]models.Deal, len(deals))
	copy(scaled, deals)
	for i := range scaled {
		scaled[i].Price *= faceValue / 100
	}

	s := newSecurity(secid, spec, scaled)
	if err := s.processDeals(); err != nil {
		return nil, err
	}

	var paidAccrued float64
	for _, deal := range deals {
		paidAccrued += deal.AccruedInterest
	}

	var currPrice, accrued float64
	switch {
	case !spec.Mainboard.IsTraded:
		// Redeemed: the position is gone regardless of what the deal
		// history sums to, and there is no live price to look up.
		s.quantity = 0
		b.logger.Info().Str("secid", secid).Msg("Bond is repaid")

	case asOf == nil:
		info, err := b.quotes.Info(ctx, spec.Mainboard)
		if err != nil {
			return nil, fmt.Errorf("board info %s: %w", secid, err)
		}
		currPrice = info.Marketdata["LCURRENTPRICE"] * faceValue / 100
		accrued = info.Securities["ACCRUEDINT"]

	default:
		rec, err := b.quotes.OnDate(ctx, spec.Mainboard, *asOf)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", secid, err)
		}
		// Historical sessions carry no accrued interest figure.
		currPrice = rec.Close * faceValue / 100
	}

	schedule, err := b.quotes.Coupons(ctx, spec.Mainboard)
	if err != nil {
		return nil, fmt.Errorf("coupon schedule %s: %w", secid, err)
	}

	instant := b.instant(asOf)
	var coupons, repaid float64
	var payouts []CashFlow

	for _, coupon := range schedule.Coupons {
		if coupon.Date.After(instant) {
			continue
		}
		quantity := quantityOnDate(deals, coupon.Date)
		if quantity == 0 {
			continue
		}
		value := coupon.Value * quantity * (1 - b.couponTaxRate)
		coupons += value
		payouts = append(payouts, CashFlow{Date: coupon.Date, Amount: value})
	}

	for _, amort := range schedule.Amortizations {
		if amort.Date.After(instant) {
			continue
		}
		quantity := quantityOnDate(deals, amort.Date)
		if quantity <= 0 {
			continue
		}
		value := amort.Value * quantity
		repaid += value
		payouts = append(payouts, CashFlow{Date: amort.Date, Amount: value})
	}

	rep := s.baseReport(models.TypeBond, currPrice)
	rep.Coupons = common.Round2(coupons)
	rep.Repaid = common.Round2(repaid)
	rep.AccruedInterest = accrued
	rep.PaidAccruedInterest = common.Round2(paidAccrued)

	// Accrued interest paid on each buy is a sunk cost recovered with the
	// next coupon; it nets out against accrued receivable on the open
	// position.
	rep.TotalReturn = common.Round2(
		rep.ClosedDealsReturn + rep.ExchangeGain +
			coupons + repaid + accrued*s.quantity - paidAccrued - rep.TotalCommissions)
	rep.CurrentValue = common.Round2((currPrice + accrued) * s.quantity)

	flows := dealFlows(scaled)
	flows = append(flows, payouts...)
	if s.quantity > 0 {
		flows = append(flows, CashFlow{Date: instant, Amount: s.quantity * (currPrice + accrued)})
	}
	b.finishXIRR(rep, flows)

	return rep, nil
}

// quantityOnDate sums deal quantities with trade date on or before date:
// the position size holding that payout.
func quantityOnDate(deals []models.Deal, date time.Time) float64 {
	var quantity float64
	for _, deal := range deals {
		if !deal.Date.After(date) {
			quantity += deal.Quantity
		}
	}
	return quantity
}
