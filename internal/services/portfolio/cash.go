package portfolio

import (
	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
)

// reconcileCash replays the cash ledger and the trades to arrive at the
// free cash balance. Dividend, coupon and redemption credits in the
// ledger are ignored here: those payouts can land on an external account,
// so dividends come from the payment sheet and bond payouts from the
// exchange schedules instead. Returns the free cash balance.
func (s *Service) reconcileCash(snap *models.Snapshot, operations []models.Operation,
	deals []models.Deal) (float64, error) {

	for _, op := range operations {
		switch op.Category {
		case models.OpDeposit:
			snap.Cash.In += op.Volume

		case models.OpWithdrawal:
			snap.Cash.Out += op.Volume

		case models.OpTransfer:
			// An incoming transfer targets the contract it is booked on.
			if op.Contract == op.ToContract {
				snap.Cash.In += op.Volume
			} else {
				snap.Cash.Out += op.Volume
			}

		case models.OpFee:
			tag, err := models.ParseCommissionTag(op.Description)
			if err != nil {
				return 0, &models.UnhandledCommissionTypeError{Desc: op.Description}
			}
			switch tag {
			case models.CommissionTradingSystem:
				snap.Commission.TradingSystem += op.Volume
			case models.CommissionBroker:
				snap.Commission.Broker += op.Volume
			case models.CommissionDepository:
				snap.Commission.Depository += op.Volume
			}

		case models.OpDividend, models.OpCoupon, models.OpRedemption:
			// accounted for via payments and exchange schedules

		default:
			return 0, &models.UnhandledOperationError{Op: string(op.Category)}
		}
	}

	snap.Cash.In = common.Round2(snap.Cash.In)
	snap.Cash.Out = common.Round2(snap.Cash.Out)
	snap.Cash.Val = common.Round2(snap.Cash.In - snap.Cash.Out)

	cash := snap.Cash.Val

	for _, deal := range deals {
		switch deal.Side {
		case models.SideBuy:
			cash -= deal.Income
		case models.SideSell:
			cash += deal.Income
		default:
			return 0, &models.UnhandledOperationError{Op: string(deal.Side)}
		}
	}

	for _, share := range snap.Shares {
		cash += share.Dividends
	}
	for _, bond := range snap.Bonds {
		cash += bond.Coupons
		cash += bond.Repaid
	}

	snap.Commission.Broker = common.Round2(snap.Commission.Broker)
	snap.Commission.TradingSystem = common.Round2(snap.Commission.TradingSystem)
	snap.Commission.Depository = common.Round2(snap.Commission.Depository)
	snap.Commission.Val = common.Round2(snap.Commission.Broker +
		snap.Commission.TradingSystem +
		snap.Commission.Depository)

	return common.Round2(cash), nil
}
