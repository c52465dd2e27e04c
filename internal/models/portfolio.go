package models

import "time"

// CashSummary is the reconciled account cash position.
type CashSummary struct {
	In  float64 `json:"in"`
	Out float64 `json:"out"`
	Val float64 `json:"val"` // in - out
}

// CommissionSummary groups account-level fee debits by recipient.
type CommissionSummary struct {
	Broker        float64 `json:"broker"`
	TradingSystem float64 `json:"trading_system"`
	Depository    float64 `json:"depository"`
	Val           float64 `json:"val"`
}

// AssetBucket is one asset-class slice of the portfolio.
type AssetBucket struct {
	CurrentValue float64 `json:"current_value"`
	Gain         float64 `json:"gain"`
	Share        float64 `json:"share"` // percentage of total value
}

// AssetAllocation groups market value by asset class.
type AssetAllocation struct {
	Cash   AssetBucket `json:"cash"`
	Shares AssetBucket `json:"shares"`
	Bonds  AssetBucket `json:"bonds"`
	All    AssetBucket `json:"all"`
}

// ReturnSummary is the consolidated gain breakdown across instruments.
type ReturnSummary struct {
	ClosedDeals  float64 `json:"closed_deals"`
	ExchangeGain float64 `json:"exchange_gain"`
	Dividends    float64 `json:"dividends"`
	Coupons      float64 `json:"coupons"`
	Total        float64 `json:"total"`
}

// VolumeSummary sums deal gross volume per instrument class.
type VolumeSummary struct {
	Shares  float64 `json:"shares"`
	Bonds   float64 `json:"bonds"`
	ETFs    float64 `json:"etfs"`
	Overall float64 `json:"overall"`
}

// SkippedSecurity flags an instrument that could not be valued.
// Skipped instruments are excluded from all rollups; callers decide
// whether to surface or reject the partial snapshot.
type SkippedSecurity struct {
	SecID  string `json:"secid"`
	Reason string `json:"reason"`
}

// Snapshot is a point-in-time valuation of a portfolio. It is a pure
// value: built once per request and discarded, never updated in place.
type Snapshot struct {
	Name     string     `json:"name"`
	AsOf     *time.Time `json:"as_of,omitempty"` // nil means "now"
	BuiltAt  time.Time  `json:"built_at"`
	Lifetime int        `json:"lifetime_days"`

	Shares map[string]*SecurityReport `json:"shares"`
	Bonds  map[string]*SecurityReport `json:"bonds"`

	Cash       CashSummary       `json:"cash"`
	Commission CommissionSummary `json:"commission"`
	Assets     AssetAllocation   `json:"assets"`
	Return     ReturnSummary     `json:"return"`
	Volume     VolumeSummary     `json:"volume"`
	XIRR       Rate              `json:"xirr"`

	Skipped []SkippedSecurity `json:"skipped,omitempty"`
}
