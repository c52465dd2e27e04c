package portfolio

import (
	"time"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
	"github.com/ivstorm/folio/internal/services/valuation"
)

// portfolioXIRR computes the money-weighted annual return of the whole
// account. Deposits are money put at risk (negative), withdrawals and
// payout credits come back (positive), and the terminal flow is the
// current total value plus the income already counted in the return
// summary. Fee debits and redemption credits carry no sign here: fees
// are already inside the deal flows, and a redemption just moves value
// from bonds to cash.
func (s *Service) portfolioXIRR(snap *models.Snapshot, operations []models.Operation,
	payments []models.Payment, asOf *time.Time) {

	var flows []valuation.CashFlow

	for _, op := range operations {
		var amount float64

		switch op.Category {
		case models.OpDeposit:
			amount = -op.Volume
		case models.OpWithdrawal:
			amount = op.Volume
		case models.OpDividend, models.OpCoupon:
			amount = op.Volume
		case models.OpFee, models.OpRedemption:
			// nothing to record
		case models.OpTransfer:
			if op.Contract == op.ToContract {
				amount = -op.Volume
			} else {
				amount = op.Volume
			}
		}

		if amount != 0 {
			flows = append(flows, valuation.CashFlow{Date: op.Date, Amount: amount})
		}
	}

	for _, payment := range payments {
		flows = append(flows, valuation.CashFlow{Date: payment.Date, Amount: -payment.Actually})
	}

	terminal := snap.Assets.All.CurrentValue + snap.Return.Dividends + snap.Return.Coupons
	flows = append(flows, valuation.CashFlow{Date: s.instant(asOf), Amount: terminal})

	rate, err := valuation.SolveXIRR(flows)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to calc XIRR for portfolio")
		snap.XIRR = models.UndefinedRate()
		return
	}
	snap.XIRR = models.DefinedRate(common.Round2(rate * 100))
}
