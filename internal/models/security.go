package models

import (
	"encoding/json"
	"time"
)

// Mainboard is the trading venue record used for live price and
// accrued-interest lookups.
type Mainboard struct {
	SecID    string `json:"secid"`
	BoardID  string `json:"boardid"`
	Market   string `json:"market"`
	Engine   string `json:"engine"`
	Decimals int    `json:"decimals"`
	IsTraded bool   `json:"is_traded"`
}

// SecuritySpec is the static instrument description from the quote service.
type SecuritySpec struct {
	SecID     string    `json:"secid"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	ISIN      string    `json:"isin"`
	FaceUnit  string    `json:"face_unit"`
	FaceValue float64   `json:"face_value"`
	Type      string    `json:"type"`
	Mainboard Mainboard `json:"mainboard"`
}

// BoardInfo carries the current session fields for a mainboard,
// split the way ISS reports them.
type BoardInfo struct {
	Securities map[string]float64 `json:"securities"` // LOTSIZE, ACCRUEDINT, ...
	Marketdata map[string]float64 `json:"marketdata"` // LAST, LCURRENTPRICE, ...
}

// HistoryRecord is one historical trading session.
type HistoryRecord struct {
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Value  float64 `json:"value"`
}

// CouponEvent is one scheduled bond coupon payment.
type CouponEvent struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"` // absolute amount per bond
}

// AmortizationEvent is one scheduled partial or full face-value repayment.
type AmortizationEvent struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"` // absolute amount per bond
}

// BondSchedule is the coupon and amortization calendar for a bond.
type BondSchedule struct {
	Coupons       []CouponEvent       `json:"coupons"`
	Amortizations []AmortizationEvent `json:"amortizations"`
}

// Rate is an annualized return that may be undefined when the solver
// cannot produce one. Undefined is distinct from 0%.
type Rate struct {
	Value float64
	Valid bool
}

// DefinedRate returns a valid Rate.
func DefinedRate(v float64) Rate {
	return Rate{Value: v, Valid: true}
}

// UndefinedRate returns the explicit "no solution" sentinel.
func UndefinedRate() Rate {
	return Rate{}
}

// MarshalJSON encodes an undefined rate as null.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON decodes null as the undefined sentinel.
func (r *Rate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rate{}
		return nil
	}
	r.Valid = true
	return json.Unmarshal(data, &r.Value)
}

// SecurityReport is the completed valuation of one instrument.
// It is built once per portfolio build and never mutated afterwards.
type SecurityReport struct {
	SecID     string       `json:"secid"`
	Name      string       `json:"name"`
	ShortName string       `json:"short_name"`
	ISIN      string       `json:"isin"`
	Type      SecurityType `json:"type"`

	Quantity             float64 `json:"quantity"`
	AvgPrice             float64 `json:"avg_price"`
	CurrentPrice         float64 `json:"current_price"`
	CurrentValue         float64 `json:"current_value"`
	ClosedDealsReturn    float64 `json:"closed_deals_return"`
	ExchangeGain         float64 `json:"exchange_gain"`
	ExchangeGainRelative float64 `json:"exchange_gain_relative"`
	TotalCommissions     float64 `json:"total_commissions"`
	TotalVolumeBuy       float64 `json:"total_volume_buy"`
	TotalVolumeSell      float64 `json:"total_volume_sell"`
	TotalReturn          float64 `json:"total_return"`
	TotalReturnRate      float64 `json:"total_return_rate"`
	XIRR                 Rate    `json:"xirr"`

	// Equity income
	Dividends float64 `json:"dividends,omitempty"`

	// Bond income and accrued interest
	Coupons             float64 `json:"coupons,omitempty"`
	Repaid              float64 `json:"repaid,omitempty"`
	AccruedInterest     float64 `json:"accrued_interest,omitempty"`
	PaidAccruedInterest float64 `json:"paid_accrued_interest,omitempty"`
}

// Income returns the accumulated payout income for the instrument:
// dividends for equities, coupons plus repayments for bonds.
func (r *SecurityReport) Income() float64 {
	if r.Type == TypeBond {
		return r.Coupons + r.Repaid
	}
	return r.Dividends
}
