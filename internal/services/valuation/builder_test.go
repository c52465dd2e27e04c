package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
)

// fakeQuotes is an in-memory QuoteClient for builder tests.
type fakeQuotes struct {
	spec     *models.SecuritySpec
	info     *models.BoardInfo
	history  map[string]*models.HistoryRecord // keyed "2006-01-02"
	schedule *models.BondSchedule
	specErr  error
}

func (f *fakeQuotes) Spec(_ context.Context, secid string) (*models.SecuritySpec, error) {
	if f.specErr != nil {
		return nil, f.specErr
	}
	return f.spec, nil
}

func (f *fakeQuotes) Info(_ context.Context, _ models.Mainboard) (*models.BoardInfo, error) {
	return f.info, nil
}

func (f *fakeQuotes) OnDate(_ context.Context, _ models.Mainboard, date time.Time) (*models.HistoryRecord, error) {
	rec, ok := f.history[date.Format("2006-01-02")]
	if !ok {
		return nil, assert.AnError
	}
	return rec, nil
}

func (f *fakeQuotes) Coupons(_ context.Context, _ models.Mainboard) (*models.BondSchedule, error) {
	if f.schedule == nil {
		return &models.BondSchedule{}, nil
	}
	return f.schedule, nil
}

func newTestBuilder(quotes *fakeQuotes, now time.Time) *Builder {
	b := NewBuilder(quotes, common.NewSilentLogger(), 0.13)
	b.now = func() time.Time { return now }
	return b
}

func lkohDeal(day time.Time, side models.DealSide, quantity, price, tsComm, brComm float64) models.Deal {
	volume := quantity * price
	if side == models.SideSell {
		quantity = -quantity
	}
	return models.Deal{
		Date:                    day,
		SecID:                   "LKOH",
		SecurityType:            models.TypeShare,
		Side:                    side,
		Quantity:                quantity,
		Price:                   price,
		Volume:                  volume,
		TradingSystemCommission: tsComm,
		BrokerCommission:        brComm,
		Income:                  volume,
	}
}

// lkohFixture is a losing trade history with one open 2-lot position:
// every sell closes below its open price.
func lkohFixture() []models.Deal {
	return []models.Deal{
		lkohDeal(date(2020, 1, 10), models.SideBuy, 4, 5296, 7.41, 23.30),
		lkohDeal(date(2020, 3, 20), models.SideSell, 2, 4500, 3.15, 9.90),
		lkohDeal(date(2020, 4, 15), models.SideBuy, 2, 5800, 4.06, 12.76),
		lkohDeal(date(2020, 6, 1), models.SideSell, 2, 3950, 2.77, 8.69),
		lkohDeal(date(2020, 7, 10), models.SideBuy, 2, 5500, 3.85, 12.10),
		lkohDeal(date(2020, 9, 15), models.SideSell, 2, 4200, 2.94, 9.24),
		lkohDeal(date(2020, 11, 2), models.SideBuy, 2, 5000, 3.50, 11.00),
		lkohDeal(date(2021, 1, 20), models.SideSell, 2, 4126, 2.89, 9.08),
		lkohDeal(date(2021, 3, 10), models.SideBuy, 2, 4892, 3.42, 10.76),
		lkohDeal(date(2021, 5, 14), models.SideSell, 2, 2708, 1.90, 11.74),
	}
}

func lkohSpec() *models.SecuritySpec {
	return &models.SecuritySpec{
		SecID:     "LKOH",
		Name:      "НК ЛУКОЙЛ",
		ShortName: "ЛУКОЙЛ",
		ISIN:      "RU0009024277",
		Mainboard: models.Mainboard{
			SecID: "LKOH", BoardID: "TQBR", Market: "shares", Engine: "stock",
			Decimals: 2, IsTraded: true,
		},
	}
}

func TestBuildShare_FullValuation(t *testing.T) {
	asOf := date(2021, 8, 27)
	quotes := &fakeQuotes{
		spec:    lkohSpec(),
		history: map[string]*models.HistoryRecord{"2021-08-27": {Close: 6429.5}},
	}
	b := newTestBuilder(quotes, date(2021, 12, 1))

	rep, err := b.BuildShare(context.Background(), "LKOH", lkohFixture(), nil, &asOf)
	require.NoError(t, err)

	assert.Equal(t, 2.0, rep.Quantity)
	assert.Equal(t, 4892.0, rep.AvgPrice)
	assert.Equal(t, 6429.5, rep.CurrentPrice)
	assert.Equal(t, 12859.0, rep.CurrentValue)
	assert.Equal(t, -14816.0, rep.ClosedDealsReturn)
	assert.Equal(t, 3075.0, rep.ExchangeGain)
	assert.Equal(t, 31.43, rep.ExchangeGainRelative)
	assert.Equal(t, 154.46, rep.TotalCommissions)
	assert.Equal(t, -11895.46, rep.TotalReturn)

	require.True(t, rep.XIRR.Valid, "losing position must still yield a defined rate")
	assert.Less(t, rep.XIRR.Value, 0.0)
}

func TestBuildShare_LivePriceAndDividends(t *testing.T) {
	quotes := &fakeQuotes{
		spec: lkohSpec(),
		info: &models.BoardInfo{Marketdata: map[string]float64{"LAST": 6000}},
	}
	b := newTestBuilder(quotes, date(2021, 12, 1))

	deals := []models.Deal{
		lkohDeal(date(2021, 1, 10), models.SideBuy, 2, 5000, 2.0, 8.0),
	}
	payments := []models.Payment{
		{SecID: "LKOH", Date: date(2021, 6, 15), Quantity: 2, Gross: 800, Actually: 696},
	}

	rep, err := b.BuildShare(context.Background(), "LKOH", deals, payments, nil)
	require.NoError(t, err)

	assert.Equal(t, 6000.0, rep.CurrentPrice)
	assert.Equal(t, 696.0, rep.Dividends)
	// exchangeGain 2000 + dividends 696 - commissions 10
	assert.Equal(t, 2686.0, rep.TotalReturn)
	assert.Equal(t, 12000.0, rep.CurrentValue)
	require.True(t, rep.XIRR.Valid)
	assert.Greater(t, rep.XIRR.Value, 0.0)
}

func TestBuildShare_ClosedPositionHasNoAvgPrice(t *testing.T) {
	quotes := &fakeQuotes{
		spec: lkohSpec(),
		info: &models.BoardInfo{Marketdata: map[string]float64{"LAST": 6000}},
	}
	b := newTestBuilder(quotes, date(2021, 12, 1))

	deals := []models.Deal{
		lkohDeal(date(2021, 1, 10), models.SideBuy, 2, 5000, 0, 0),
		lkohDeal(date(2021, 3, 10), models.SideSell, 2, 5500, 0, 0),
	}

	rep, err := b.BuildShare(context.Background(), "LKOH", deals, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, rep.Quantity)
	assert.Equal(t, 0.0, rep.AvgPrice)
	assert.Equal(t, 0.0, rep.ExchangeGain)
	assert.Equal(t, 0.0, rep.CurrentValue)
	assert.Equal(t, 1000.0, rep.ClosedDealsReturn)
}

func bondSpec(isTraded bool) *models.SecuritySpec {
	return &models.SecuritySpec{
		SecID:     "RU000A0JX0J2",
		Name:      "ОФЗ 26220",
		ShortName: "ОФЗ 26220",
		FaceValue: 1000,
		Mainboard: models.Mainboard{
			SecID: "RU000A0JX0J2", BoardID: "TQOB", Market: "bonds", Engine: "stock",
			Decimals: 2, IsTraded: isTraded,
		},
	}
}

func bondDeal(day time.Time, side models.DealSide, quantity, pricePct, accrued float64) models.Deal {
	volume := quantity * pricePct * 10 // percent of 1000 face
	if side == models.SideSell {
		quantity = -quantity
	}
	return models.Deal{
		Date:            day,
		SecID:           "RU000A0JX0J2",
		SecurityType:    models.TypeBond,
		Side:            side,
		Quantity:        quantity,
		Price:           pricePct,
		AccruedInterest: accrued,
		Volume:          volume,
		Income:          volume + accrued,
	}
}

func TestBuildBond_RescalesAndWithholds(t *testing.T) {
	quotes := &fakeQuotes{
		spec: bondSpec(true),
		info: &models.BoardInfo{
			Securities: map[string]float64{"ACCRUEDINT": 15.3},
			Marketdata: map[string]float64{"LCURRENTPRICE": 101.2},
		},
		schedule: &models.BondSchedule{
			Coupons: []models.CouponEvent{
				{Date: date(2023, 3, 1), Value: 34.9},
				{Date: date(2023, 9, 1), Value: 34.9},
				{Date: date(2024, 3, 1), Value: 34.9}, // future, skipped
			},
		},
	}
	b := newTestBuilder(quotes, date(2023, 12, 1))

	deals := []models.Deal{
		bondDeal(date(2023, 1, 10), models.SideBuy, 10, 98.5, 120),
	}

	rep, err := b.BuildBond(context.Background(), "RU000A0JX0J2", deals, nil)
	require.NoError(t, err)

	// Percent-of-face prices rescaled to currency.
	assert.Equal(t, 985.0, rep.AvgPrice)
	assert.Equal(t, 1012.0, rep.CurrentPrice)
	assert.Equal(t, 270.0, rep.ExchangeGain)

	// Two past coupons at 13% withholding: 34.9 * 10 * 0.87 * 2
	assert.Equal(t, 607.26, rep.Coupons)
	assert.Equal(t, 15.3, rep.AccruedInterest)
	assert.Equal(t, 120.0, rep.PaidAccruedInterest)

	// (price + accrued) * quantity
	assert.Equal(t, 10273.0, rep.CurrentValue)

	// 270 + 607.26 + 15.3*10 - 120
	assert.Equal(t, 910.26, rep.TotalReturn)
}

func TestBuildBond_CouponQuantityTracksHolding(t *testing.T) {
	quotes := &fakeQuotes{
		spec: bondSpec(true),
		info: &models.BoardInfo{
			Securities: map[string]float64{"ACCRUEDINT": 0},
			Marketdata: map[string]float64{"LCURRENTPRICE": 100},
		},
		schedule: &models.BondSchedule{
			Coupons: []models.CouponEvent{
				{Date: date(2023, 3, 1), Value: 40},
				{Date: date(2023, 9, 1), Value: 40},
			},
		},
	}
	b := newTestBuilder(quotes, date(2023, 12, 1))

	// 10 held at the first coupon, 4 at the second.
	deals := []models.Deal{
		bondDeal(date(2023, 1, 10), models.SideBuy, 10, 100, 0),
		bondDeal(date(2023, 6, 1), models.SideSell, 6, 100, 0),
	}

	rep, err := b.BuildBond(context.Background(), "RU000A0JX0J2", deals, nil)
	require.NoError(t, err)

	// (40*10 + 40*4) * 0.87
	assert.Equal(t, 487.2, rep.Coupons)
}

func TestBuildBond_Amortization(t *testing.T) {
	quotes := &fakeQuotes{
		spec: bondSpec(true),
		info: &models.BoardInfo{
			Securities: map[string]float64{"ACCRUEDINT": 0},
			Marketdata: map[string]float64{"LCURRENTPRICE": 100},
		},
		schedule: &models.BondSchedule{
			Amortizations: []models.AmortizationEvent{
				{Date: date(2023, 6, 1), Value: 250},
				{Date: date(2024, 6, 1), Value: 250}, // future, skipped
			},
		},
	}
	b := newTestBuilder(quotes, date(2023, 12, 1))

	deals := []models.Deal{
		bondDeal(date(2023, 1, 10), models.SideBuy, 10, 100, 0),
	}

	rep, err := b.BuildBond(context.Background(), "RU000A0JX0J2", deals, nil)
	require.NoError(t, err)

	// Repayments come back untaxed.
	assert.Equal(t, 2500.0, rep.Repaid)
	assert.Equal(t, 0.0, rep.Coupons)
}

func TestBuildBond_RepaidBondHasNoPosition(t *testing.T) {
	quotes := &fakeQuotes{
		spec: bondSpec(false),
		schedule: &models.BondSchedule{
			Coupons: []models.CouponEvent{
				{Date: date(2023, 3, 1), Value: 34.9},
			},
		},
	}
	b := newTestBuilder(quotes, date(2023, 12, 1))

	deals := []models.Deal{
		bondDeal(date(2023, 1, 10), models.SideBuy, 10, 98.5, 0),
	}

	rep, err := b.BuildBond(context.Background(), "RU000A0JX0J2", deals, nil)
	require.NoError(t, err)

	// Delisted: no open quantity, no market value, coupons preserved.
	assert.Equal(t, 0.0, rep.Quantity)
	assert.Equal(t, 0.0, rep.CurrentValue)
	assert.Equal(t, 0.0, rep.CurrentPrice)
	assert.Equal(t, 303.63, rep.Coupons)
}

func TestBuildShare_HistoricalPriceUsedForAsOf(t *testing.T) {
	asOf := date(2021, 3, 31)
	quotes := &fakeQuotes{
		spec: lkohSpec(),
		info: &models.BoardInfo{Marketdata: map[string]float64{"LAST": 9999}},
		history: map[string]*models.HistoryRecord{
			"2021-03-31": {Close: 5500},
		},
	}
	b := newTestBuilder(quotes, date(2021, 12, 1))

	deals := []models.Deal{
		lkohDeal(date(2021, 1, 10), models.SideBuy, 2, 5000, 0, 0),
	}

	rep, err := b.BuildShare(context.Background(), "LKOH", deals, nil, &asOf)
	require.NoError(t, err)

	assert.Equal(t, 5500.0, rep.CurrentPrice)
	assert.Equal(t, 11000.0, rep.CurrentValue)
}
