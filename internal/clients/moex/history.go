package moex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ivstorm/folio/internal/models"
)

// historyLookback is how many calendar days OnDate looks behind the
// requested date for the most recent trading session. Two weeks covers
// any stretch of holidays the exchange has ever had.
const historyLookback = 14

// History fetches daily session records for [from, till], paging through
// the ISS cursor, and folds them into the client cache.
func (c *Client) History(ctx context.Context, board models.Mainboard, from, till time.Time) (map[string]models.HistoryRecord, error) {
	path := fmt.Sprintf("/history/engines/%s/markets/%s/boards/%s/securities/%s",
		board.Engine, board.Market, board.BoardID, url.PathEscape(board.SecID))

	days := map[string]models.HistoryRecord{}
	processed := 0

	for {
		params := url.Values{}
		params.Set("from", formatISSDate(from))
		params.Set("till", formatISSDate(till))
		params.Set("start", strconv.Itoa(processed))

		var resp struct {
			History issTable `json:"history"`
		}
		if err := c.get(ctx, path, params, &resp); err != nil {
			return nil, err
		}

		if len(resp.History.Data) == 0 {
			break
		}
		processed += len(resp.History.Data)

		for i := range resp.History.Data {
			row := resp.History.rowMap(i)
			date := toString(row["TRADEDATE"])
			if date == "" {
				continue
			}
			days[date] = models.HistoryRecord{
				Close:  toFloat(row["CLOSE"]),
				Volume: toFloat(row["VOLUME"]),
				Value:  toFloat(row["VALUE"]),
			}
		}
	}

	var window []string
	for d := from; !d.After(till); d = d.AddDate(0, 0, 1) {
		window = append(window, formatISSDate(d))
	}
	c.cache.putHistory(board.SecID, days, window)

	return days, nil
}

// OnDate returns the session record at the given date, or the most
// recent session before it when the date fell on a weekend or holiday.
func (c *Client) OnDate(ctx context.Context, board models.Mainboard, date time.Time) (*models.HistoryRecord, error) {
	day := formatISSDate(date)

	if !c.cache.hasHistoryWindow(board.SecID, day) {
		from := date.AddDate(0, 0, -historyLookback)
		if _, err := c.History(ctx, board, from, date); err != nil {
			return nil, err
		}
	}

	for i := 0; i <= historyLookback; i++ {
		d := formatISSDate(date.AddDate(0, 0, -i))
		if rec, ok := c.cache.getHistory(board.SecID, d); ok {
			return &rec, nil
		}
	}

	return nil, fmt.Errorf("no trading sessions for %s on or before %s", board.SecID, day)
}
