// Package models defines data structures for folio
package models

import (
	"fmt"
	"time"
)

// DealSide is the direction of a trade.
type DealSide string

const (
	SideBuy  DealSide = "buy"
	SideSell DealSide = "sell"
)

// ParseDealSide maps a broker-report operation label to a deal side.
// Sberbank reports label trades "Покупка" / "Продажа".
func ParseDealSide(label string) (DealSide, error) {
	switch label {
	case "Покупка":
		return SideBuy, nil
	case "Продажа":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unsupported deal operation %q", label)
	}
}

// SecurityType classifies an instrument.
type SecurityType string

const (
	TypeShare             SecurityType = "share"
	TypeBond              SecurityType = "bond"
	TypeFund              SecurityType = "fund"
	TypeDepositaryReceipt SecurityType = "depositary_receipt"
)

// ParseSecurityType maps a broker-report instrument type label.
func ParseSecurityType(label string) (SecurityType, error) {
	switch label {
	case "Акция":
		return TypeShare, nil
	case "Облигация":
		return TypeBond, nil
	case "Пай":
		return TypeFund, nil
	case "Депозитарная расписка":
		return TypeDepositaryReceipt, nil
	default:
		return "", fmt.Errorf("unsupported security type %q", label)
	}
}

// IsEquity reports whether the type is valued as an equity-like instrument
// (shares, fund units and depositary receipts share one valuation path).
func (t SecurityType) IsEquity() bool {
	return t == TypeShare || t == TypeFund || t == TypeDepositaryReceipt
}

// Deal is one executed trade from the broker report.
// Quantity is signed: positive for buys, negative for sells.
type Deal struct {
	Contract                string       `json:"contract"`
	DealID                  string       `json:"deal_id"`
	Date                    time.Time    `json:"date"`
	SettlementDate          time.Time    `json:"settlement_date"`
	SecID                   string       `json:"secid"`
	SecurityType            SecurityType `json:"security_type"`
	Market                  string       `json:"market"`
	Side                    DealSide     `json:"side"`
	Quantity                float64      `json:"quantity"`
	Price                   float64      `json:"price"`
	AccruedInterest         float64      `json:"accrued_interest"`
	Volume                  float64      `json:"volume"`
	Currency                string       `json:"currency"`
	Rate                    float64      `json:"rate"`
	TradingSystemCommission float64      `json:"trading_system_commission"`
	BrokerCommission        float64      `json:"broker_commission"`
	Income                  float64      `json:"income"`
	DealType                string       `json:"deal_type"`
}

// OperationCategory is a cash-ledger entry category. The set is closed:
// an unrecognized category is a fatal input error, never skipped.
type OperationCategory string

const (
	OpDeposit    OperationCategory = "deposit"
	OpWithdrawal OperationCategory = "withdrawal"
	OpTransfer   OperationCategory = "transfer"
	OpFee        OperationCategory = "fee"
	OpDividend   OperationCategory = "dividend"
	OpCoupon     OperationCategory = "coupon"
	OpRedemption OperationCategory = "redemption"
)

// ParseOperationCategory maps a broker-report operation label to a category.
func ParseOperationCategory(label string) (OperationCategory, error) {
	switch label {
	case "Ввод ДС":
		return OpDeposit, nil
	case "Вывод ДС":
		return OpWithdrawal, nil
	case "Перевод ДС":
		return OpTransfer, nil
	case "Списание комиссии":
		return OpFee, nil
	case "Зачисление дивидендов":
		return OpDividend, nil
	case "Зачисление купона":
		return OpCoupon, nil
	case "Зачисление суммы от погашения ЦБ":
		return OpRedemption, nil
	default:
		return "", fmt.Errorf("unsupported operation %q", label)
	}
}

// CommissionTag identifies which commission bucket a fee debit belongs to.
type CommissionTag string

const (
	CommissionTradingSystem CommissionTag = "trading_system"
	CommissionBroker        CommissionTag = "broker"
	CommissionDepository    CommissionTag = "depository"
)

// ParseCommissionTag classifies a fee operation by its description line.
func ParseCommissionTag(desc string) (CommissionTag, error) {
	switch desc {
	case "Списание комиссии ТС":
		return CommissionTradingSystem, nil
	case "Списание комиссии брокера":
		return CommissionBroker, nil
	case "Оплата депозитарных услуг":
		return CommissionDepository, nil
	default:
		return "", fmt.Errorf("unsupported commission type %q", desc)
	}
}

// Operation is one cash-ledger entry from the broker report.
type Operation struct {
	Contract     string            `json:"contract"`
	Date         time.Time         `json:"date"`
	Category     OperationCategory `json:"category"`
	Volume       float64           `json:"volume"`
	Currency     string            `json:"currency"`
	Description  string            `json:"description"`
	FromContract string            `json:"from_contract,omitempty"`
	ToContract   string            `json:"to_contract,omitempty"`
}

// Payment is one externally reported payout (dividends credited to an
// external account never show up in the broker's cash ledger, so they are
// maintained by hand in a separate sheet).
type Payment struct {
	SecID    string    `json:"secid"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Gross    float64   `json:"gross"`
	Actually float64   `json:"actually"`
}

// StoredPortfolio is a named set of imported records.
type StoredPortfolio struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Deals      []Deal      `json:"deals"`
	Operations []Operation `json:"operations"`
	Payments   []Payment   `json:"payments"`
	CreatedAt  time.Time   `json:"created_at"`
}
