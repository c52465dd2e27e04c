package portfolio

import (
	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
)

// rollupMarketValue sums instrument valuations into the asset allocation
// and computes each class's share of the total.
func rollupMarketValue(snap *models.Snapshot, cashValue float64) {
	snap.Assets.Cash.CurrentValue = cashValue

	for _, share := range snap.Shares {
		snap.Assets.Shares.CurrentValue += share.CurrentValue
		snap.Assets.Shares.Gain += share.ExchangeGain
	}
	snap.Assets.Shares.CurrentValue = common.Round2(snap.Assets.Shares.CurrentValue)
	snap.Assets.Shares.Gain = common.Round2(snap.Assets.Shares.Gain)

	for _, bond := range snap.Bonds {
		snap.Assets.Bonds.CurrentValue += bond.CurrentValue
		snap.Assets.Bonds.Gain += bond.ExchangeGain
	}
	snap.Assets.Bonds.CurrentValue = common.Round2(snap.Assets.Bonds.CurrentValue)
	snap.Assets.Bonds.Gain = common.Round2(snap.Assets.Bonds.Gain)

	snap.Assets.All.CurrentValue = common.Round2(snap.Assets.Cash.CurrentValue +
		snap.Assets.Shares.CurrentValue +
		snap.Assets.Bonds.CurrentValue)
	snap.Assets.All.Gain = common.Round2(snap.Assets.Shares.Gain +
		snap.Assets.Bonds.Gain)

	if snap.Assets.All.CurrentValue != 0 {
		total := snap.Assets.All.CurrentValue
		snap.Assets.Cash.Share = common.Round2(snap.Assets.Cash.CurrentValue / total * 100)
		snap.Assets.Shares.Share = common.Round2(snap.Assets.Shares.CurrentValue / total * 100)
		snap.Assets.Bonds.Share = common.Round2(snap.Assets.Bonds.CurrentValue / total * 100)
	}
}

// rollupReturn sums per-instrument returns into the portfolio return
// summary. Bond redemptions are principal coming back, not income, so
// they stay out of the coupon line.
func rollupReturn(snap *models.Snapshot) {
	for _, share := range snap.Shares {
		snap.Return.ClosedDeals += share.ClosedDealsReturn
		snap.Return.ExchangeGain += share.ExchangeGain
		snap.Return.Dividends += share.Dividends
	}
	for _, bond := range snap.Bonds {
		snap.Return.ClosedDeals += bond.ClosedDealsReturn
		snap.Return.ExchangeGain += bond.ExchangeGain
		snap.Return.Coupons += bond.Coupons
	}

	snap.Return.ClosedDeals = common.Round2(snap.Return.ClosedDeals)
	snap.Return.ExchangeGain = common.Round2(snap.Return.ExchangeGain)
	snap.Return.Dividends = common.Round2(snap.Return.Dividends)
	snap.Return.Coupons = common.Round2(snap.Return.Coupons)

	snap.Return.Total = common.Round2(snap.Return.ClosedDeals +
		snap.Return.ExchangeGain +
		snap.Return.Dividends +
		snap.Return.Coupons)
}

// rollupVolumes totals traded turnover by asset class. An unknown
// security type only loses its turnover line, it never fails the build.
func (s *Service) rollupVolumes(snap *models.Snapshot, deals []models.Deal) {
	for _, deal := range deals {
		switch deal.SecurityType {
		case models.TypeShare, models.TypeDepositaryReceipt:
			snap.Volume.Shares += deal.Volume
		case models.TypeBond:
			snap.Volume.Bonds += deal.Volume
		case models.TypeFund:
			snap.Volume.ETFs += deal.Volume
		default:
			s.logger.Warn().
				Str("secid", deal.SecID).
				Str("type", string(deal.SecurityType)).
				Msg("Unhandled security type in volume rollup")
		}
	}

	snap.Volume.Overall = common.Round2(snap.Volume.Shares +
		snap.Volume.Bonds +
		snap.Volume.ETFs)
	snap.Volume.Shares = common.Round2(snap.Volume.Shares)
	snap.Volume.Bonds = common.Round2(snap.Volume.Bonds)
	snap.Volume.ETFs = common.Round2(snap.Volume.ETFs)
}
