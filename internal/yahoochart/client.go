package yahoochart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Yahoo Finance chart API, daily interval with dividend events.
// The base URL may point at a relaying proxy that forwards the request
// verbatim and returns the origin's JSON body unmodified.
const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client is an HTTP client for the chart API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new chart client
func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL creates a new chart client with a custom base URL
// (relaying proxy, or a test server)
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetDailyChart fetches daily closes and dividend events for a ticker between
// two Unix timestamps (inclusive window bounds, seconds since epoch).
func (c *Client) GetDailyChart(ctx context.Context, ticker string, period1, period2 int64) (*ChartData, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(period1, 10))
	params.Set("period2", strconv.FormatInt(period2, 10))
	params.Set("interval", "1d")
	params.Set("events", "div")

	reqURL := c.baseURL + "/" + url.PathEscape(ticker) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("chart API returned status %d", resp.StatusCode)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("empty time series")
	}

	result := chart.Chart.Result[0]

	data := &ChartData{
		Timestamps: result.Timestamp,
		Closes:     make([]*float64, len(result.Timestamp)),
	}
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := range data.Closes {
			if i < len(closes) {
				data.Closes[i] = closes[i]
			}
		}
	}

	if result.Events != nil {
		for key, div := range result.Events.Dividends {
			if div.Date == 0 {
				// older responses only carry the timestamp in the map key
				ts, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					continue
				}
				div.Date = ts
			}
			data.Dividends = append(data.Dividends, div)
		}
		sort.Slice(data.Dividends, func(i, j int) bool {
			return data.Dividends[i].Date < data.Dividends[j].Date
		})
	}

	return data, nil
}
