// Package moex provides a client for the MOEX ISS API
package moex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/interfaces"
	"github.com/ivstorm/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://iss.moex.com/iss"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// ErrInstrumentNotFound is returned when ISS has no description for a SecID.
var ErrInstrumentNotFound = errors.New("instrument not found")

// Client implements the QuoteClient interface against iss.moex.com.
// Responses are cached per SecID for the life of the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	cache      *cache
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new MOEX ISS client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		cache:   newCache(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an ISS API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("MOEX ISS error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and decodes an ISS block response.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("iss.meta", "off")

	reqURL := fmt.Sprintf("%s%s.json?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("MOEX ISS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Spec returns the static description and mainboard for an instrument.
func (c *Client) Spec(ctx context.Context, secid string) (*models.SecuritySpec, error) {
	if spec, ok := c.cache.getSpec(secid); ok {
		return spec, nil
	}

	path := fmt.Sprintf("/securities/%s", url.PathEscape(secid))

	var resp struct {
		Description issTable `json:"description"`
		Boards      issTable `json:"boards"`
	}
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Description.Data) == 0 {
		return nil, fmt.Errorf("secid %s: %w", secid, ErrInstrumentNotFound)
	}

	// Description rows are [name, title, value] triples.
	desc := map[string]string{}
	for _, row := range resp.Description.Data {
		if len(row) >= 3 {
			desc[toString(row[0])] = toString(row[2])
		}
	}

	board, err := pickMainboard(resp.Boards)
	if err != nil {
		return nil, fmt.Errorf("secid %s: %w", secid, err)
	}

	// Sub-ruble price steps still get reported with money math at 2 decimals.
	if board.Decimals < 2 {
		board.Decimals = 2
	}

	faceValue, _ := strconv.ParseFloat(desc["FACEVALUE"], 64)

	spec := &models.SecuritySpec{
		SecID:     secid,
		Name:      desc["NAME"],
		ShortName: desc["SHORTNAME"],
		ISIN:      desc["ISIN"],
		FaceUnit:  desc["FACEUNIT"],
		FaceValue: faceValue,
		Type:      desc["TYPE"],
		Mainboard: board,
	}

	c.cache.putSpec(secid, spec)
	return spec, nil
}

// pickMainboard selects the primary board row, falling back to the first.
func pickMainboard(boards issTable) (models.Mainboard, error) {
	if len(boards.Data) == 0 {
		return models.Mainboard{}, errors.New("no boards listed")
	}

	row := boards.rowMap(0)
	for i := range boards.Data {
		m := boards.rowMap(i)
		if toFloat(m["is_primary"]) == 1 {
			row = m
			break
		}
	}

	return models.Mainboard{
		SecID:    toString(row["secid"]),
		BoardID:  toString(row["boardid"]),
		Market:   toString(row["market"]),
		Engine:   toString(row["engine"]),
		Decimals: int(toFloat(row["decimals"])),
		IsTraded: toFloat(row["is_traded"]) == 1,
	}, nil
}

// Info returns the current session fields for a board.
func (c *Client) Info(ctx context.Context, board models.Mainboard) (*models.BoardInfo, error) {
	if info, ok := c.cache.getInfo(board.SecID); ok {
		return info, nil
	}

	path := fmt.Sprintf("/engines/%s/markets/%s/boards/%s/securities/%s",
		board.Engine, board.Market, board.BoardID, url.PathEscape(board.SecID))

	var resp struct {
		Securities issTable `json:"securities"`
		Marketdata issTable `json:"marketdata"`
	}
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	info := &models.BoardInfo{
		Securities: numericFields(resp.Securities),
		Marketdata: numericFields(resp.Marketdata),
	}

	c.cache.putInfo(board.SecID, info)
	return info, nil
}

// Coupons returns the coupon/amortization calendar for a bond.
func (c *Client) Coupons(ctx context.Context, board models.Mainboard) (*models.BondSchedule, error) {
	path := fmt.Sprintf("/statistics/engines/%s/markets/%s/bondization/%s",
		board.Engine, board.Market, url.PathEscape(board.SecID))

	var resp struct {
		Amortizations issTable `json:"amortizations"`
		Coupons       issTable `json:"coupons"`
	}
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	schedule := &models.BondSchedule{}

	for i := range resp.Coupons.Data {
		row := resp.Coupons.rowMap(i)
		date, err := parseISSDate(toString(row["coupondate"]))
		if err != nil {
			continue
		}
		schedule.Coupons = append(schedule.Coupons, models.CouponEvent{
			Date:  date,
			Value: toFloat(row["value"]),
		})
	}

	for i := range resp.Amortizations.Data {
		row := resp.Amortizations.rowMap(i)
		date, err := parseISSDate(toString(row["amortdate"]))
		if err != nil {
			continue
		}
		schedule.Amortizations = append(schedule.Amortizations, models.AmortizationEvent{
			Date:  date,
			Value: toFloat(row["value"]),
		})
	}

	return schedule, nil
}

// Ensure Client implements QuoteClient
var _ interfaces.QuoteClient = (*Client)(nil)
