package services

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/corpactions/internal/models"
	"github.com/epeers/corpactions/internal/yahoochart"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006/01/02"

// LookupService fetches a price window around a target date and selects the
// economically correct close and dividend for it. Failures never propagate:
// they are reported in the result's Error field, with all numeric fields nil.
type LookupService struct {
	client     *yahoochart.Client
	beforeDays int
	afterDays  int
}

// NewLookupService creates a new LookupService. The window is wide enough to
// find 21 trading days of history across weekends and holidays.
func NewLookupService(client *yahoochart.Client, beforeDays, afterDays int) *LookupService {
	if beforeDays <= 0 {
		beforeDays = 45
	}
	if afterDays <= 0 {
		afterDays = 14
	}
	return &LookupService{
		client:     client,
		beforeDays: beforeDays,
		afterDays:  afterDays,
	}
}

// Lookup resolves the close price, dividend and trading-day-offset changes
// for one StockRef. A ref with an empty ticker short-circuits without a
// network call.
func (s *LookupService) Lookup(ctx context.Context, ref models.StockRef) *models.EnrichedResult {
	res := &models.EnrichedResult{}

	if ref.Ticker == "" {
		res.Error = "invalid ticker"
		return res
	}

	target, err := time.ParseInLocation(dateLayout, ref.Date, time.Local)
	if err != nil {
		res.Error = fmt.Sprintf("invalid date %q", ref.Date)
		return res
	}
	targetTs := target.Unix()

	period1 := target.AddDate(0, 0, -s.beforeDays).Unix()
	period2 := target.AddDate(0, 0, s.afterDays).Unix()

	chart, err := s.client.GetDailyChart(ctx, ref.Ticker, period1, period2)
	if err != nil {
		log.WithFields(log.Fields{"ticker": ref.Ticker, "date": ref.Date}).
			Debugf("chart fetch failed: %v", err)
		res.Error = err.Error()
		return res
	}

	base := selectBaseIndex(chart.Timestamps, chart.Closes, targetTs)
	if base < 0 {
		res.Error = "no valid close"
		return res
	}

	price := round1(*chart.Closes[base])
	res.Price = &price
	res.ActualDate = time.Unix(chart.Timestamps[base], 0).Format(dateLayout)

	if div := closestDividend(chart.Dividends, targetTs); div != nil {
		amount := round2(div.Amount)
		res.Dividend = &amount
	}

	res.Change1D = CalcChangeRate(chart.Closes[base], NthTradingDayBack(chart.Closes, base, 1))
	res.Change1W = CalcChangeRate(chart.Closes[base], NthTradingDayBack(chart.Closes, base, 5))
	res.Change2W = CalcChangeRate(chart.Closes[base], NthTradingDayBack(chart.Closes, base, 10))
	res.Change1M = CalcChangeRate(chart.Closes[base], NthTradingDayBack(chart.Closes, base, 21))

	return res
}

// selectBaseIndex picks the series index for the target date: the most recent
// day on or before the target with a non-nil close, falling back to the day
// with the smallest absolute difference in either direction. Returns -1 when
// no day has a non-nil close.
func selectBaseIndex(timestamps []int64, closes []*float64, targetTs int64) int {
	best := -1
	var bestDiff int64
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		diff := targetTs - ts
		if diff < 0 {
			continue
		}
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	if best >= 0 {
		return best
	}

	// no on-or-before day exists
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		diff := targetTs - ts
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// closestDividend returns the dividend event nearest the target timestamp in
// either direction, or nil when the window holds none.
func closestDividend(dividends []yahoochart.DividendEvent, targetTs int64) *yahoochart.DividendEvent {
	best := -1
	var bestDiff int64
	for i, div := range dividends {
		diff := targetTs - div.Date
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	if best < 0 {
		return nil
	}
	return &dividends[best]
}
