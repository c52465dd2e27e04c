package moex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivstorm/folio/internal/models"
)

// newTestClient points a client at a fixture handler and counts requests.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
	)
	return client, &calls
}

const lkohSecuritiesJSON = `{
	"description": {
		"columns": ["name", "title", "value"],
		"data": [
			["SECID", "Код ценной бумаги", "LKOH"],
			["NAME", "Полное наименование", "НК ЛУКОЙЛ (ПАО) - ао"],
			["SHORTNAME", "Краткое наименование", "ЛУКОЙЛ"],
			["ISIN", "ISIN код", "RU0009024277"],
			["TYPE", "Тип", "common_share"]
		]
	},
	"boards": {
		"columns": ["secid", "boardid", "market", "engine", "is_traded", "decimals", "is_primary"],
		"data": [
			["LKOH", "SMAL", "shares", "stock", 1, 1, 0],
			["LKOH", "TQBR", "shares", "stock", 1, 1, 1]
		]
	}
}`

func TestSpec_ParsesDescriptionAndPrimaryBoard(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/securities/LKOH.json", r.URL.Path)
		assert.Equal(t, "off", r.URL.Query().Get("iss.meta"))
		fmt.Fprint(w, lkohSecuritiesJSON)
	})

	spec, err := client.Spec(context.Background(), "LKOH")
	require.NoError(t, err)

	assert.Equal(t, "НК ЛУКОЙЛ (ПАО) - ао", spec.Name)
	assert.Equal(t, "ЛУКОЙЛ", spec.ShortName)
	assert.Equal(t, "RU0009024277", spec.ISIN)

	// The primary board wins over the first row.
	assert.Equal(t, "TQBR", spec.Mainboard.BoardID)
	assert.Equal(t, "stock", spec.Mainboard.Engine)
	assert.True(t, spec.Mainboard.IsTraded)

	// 1-decimal price step is still reported with 2-decimal money math.
	assert.Equal(t, 2, spec.Mainboard.Decimals)

	// Second call comes from cache.
	_, err = client.Spec(context.Background(), "LKOH")
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(calls))
}

func TestSpec_BondFaceValue(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"description": {
				"columns": ["name", "title", "value"],
				"data": [
					["SECID", "Код", "RU000A0JX0J2"],
					["FACEVALUE", "Номинал", "1000"],
					["FACEUNIT", "Валюта номинала", "SUR"]
				]
			},
			"boards": {
				"columns": ["secid", "boardid", "market", "engine", "is_traded", "decimals", "is_primary"],
				"data": [["RU000A0JX0J2", "TQOB", "bonds", "stock", 0, 2, 1]]
			}
		}`)
	})

	spec, err := client.Spec(context.Background(), "RU000A0JX0J2")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, spec.FaceValue)
	assert.Equal(t, "SUR", spec.FaceUnit)
	assert.False(t, spec.Mainboard.IsTraded)
}

func TestSpec_UnknownInstrument(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"description": {"columns": [], "data": []}, "boards": {"columns": [], "data": []}}`)
	})

	_, err := client.Spec(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, ErrInstrumentNotFound))
}

func TestSpec_HTTPErrorWrapped(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.Spec(context.Background(), "LKOH")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func tqbrBoard() models.Mainboard {
	return models.Mainboard{
		SecID: "LKOH", BoardID: "TQBR", Market: "shares", Engine: "stock",
		Decimals: 2, IsTraded: true,
	}
}

func TestInfo_NumericFieldsOnly(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/engines/stock/markets/shares/boards/TQBR/securities/LKOH.json", r.URL.Path)
		fmt.Fprint(w, `{
			"securities": {
				"columns": ["SECID", "LOTSIZE", "ACCRUEDINT"],
				"data": [["LKOH", 1, null]]
			},
			"marketdata": {
				"columns": ["SECID", "LAST", "LCURRENTPRICE"],
				"data": [["LKOH", 6429.5, 6430]]
			}
		}`)
	})

	info, err := client.Info(context.Background(), tqbrBoard())
	require.NoError(t, err)

	assert.Equal(t, 6429.5, info.Marketdata["LAST"])
	assert.Equal(t, 1.0, info.Securities["LOTSIZE"])

	// Nulls and string columns are dropped, not zeroed.
	_, ok := info.Securities["ACCRUEDINT"]
	assert.False(t, ok)
	_, ok = info.Marketdata["SECID"]
	assert.False(t, ok)

	// Cached on the second lookup.
	_, err = client.Info(context.Background(), tqbrBoard())
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(calls))
}

func TestHistory_PagesThroughCursor(t *testing.T) {
	page := func(rows string) string {
		return fmt.Sprintf(`{"history": {"columns": ["TRADEDATE", "CLOSE", "VOLUME", "VALUE"], "data": [%s]}}`, rows)
	}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		switch start {
		case 0:
			fmt.Fprint(w, page(`["2021-08-25", 6400.0, 100, 640000], ["2021-08-26", 6410.0, 120, 769200]`))
		case 2:
			fmt.Fprint(w, page(`["2021-08-27", 6429.5, 130, 835835]`))
		default:
			fmt.Fprint(w, page(``))
		}
	})

	from := time.Date(2021, 8, 25, 0, 0, 0, 0, time.UTC)
	till := time.Date(2021, 8, 27, 0, 0, 0, 0, time.UTC)

	days, err := client.History(context.Background(), tqbrBoard(), from, till)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, 6429.5, days["2021-08-27"].Close)
	assert.Equal(t, 130.0, days["2021-08-27"].Volume)
}

func TestOnDate_FallsBackToPreviousSession(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, `{"history": {"columns": [], "data": []}}`)
			return
		}
		// Friday the 27th traded; the requested Sunday did not.
		fmt.Fprint(w, `{"history": {"columns": ["TRADEDATE", "CLOSE", "VOLUME", "VALUE"], "data": [["2021-08-27", 6429.5, 130, 835835]]}}`)
	})

	sunday := time.Date(2021, 8, 29, 0, 0, 0, 0, time.UTC)
	rec, err := client.OnDate(context.Background(), tqbrBoard(), sunday)
	require.NoError(t, err)
	assert.Equal(t, 6429.5, rec.Close)

	fetched := atomic.LoadInt64(calls)

	// The covered window is cached: repeat lookups inside it, including
	// other non-trading days, make no further requests.
	saturday := time.Date(2021, 8, 28, 0, 0, 0, 0, time.UTC)
	rec, err = client.OnDate(context.Background(), tqbrBoard(), saturday)
	require.NoError(t, err)
	assert.Equal(t, 6429.5, rec.Close)
	assert.Equal(t, fetched, atomic.LoadInt64(calls))
}

func TestOnDate_NoSessionsAtAll(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"history": {"columns": [], "data": []}}`)
	})

	_, err := client.OnDate(context.Background(), tqbrBoard(), time.Date(2021, 8, 29, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trading sessions")
}

func TestCoupons_ParsesSchedule(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statistics/engines/stock/markets/bonds/bondization/RU000A0JX0J2.json", r.URL.Path)
		fmt.Fprint(w, `{
			"coupons": {
				"columns": ["coupondate", "value"],
				"data": [["2023-03-01", 34.9], ["2023-09-01", 34.9], [null, null]]
			},
			"amortizations": {
				"columns": ["amortdate", "value"],
				"data": [["2024-03-01", 1000]]
			}
		}`)
	})

	board := models.Mainboard{
		SecID: "RU000A0JX0J2", BoardID: "TQOB", Market: "bonds", Engine: "stock",
	}
	schedule, err := client.Coupons(context.Background(), board)
	require.NoError(t, err)

	// Rows with null dates (unscheduled tail coupons) are dropped.
	require.Len(t, schedule.Coupons, 2)
	assert.Equal(t, 34.9, schedule.Coupons[0].Value)
	assert.Equal(t, "2023-03-01", schedule.Coupons[0].Date.Format("2006-01-02"))

	require.Len(t, schedule.Amortizations, 1)
	assert.Equal(t, 1000.0, schedule.Amortizations[0].Value)
}
