package services

import "math"

// NthTradingDayBack walks backward from base, skipping nil closes, until the
// nth non-nil close is found. Returns nil when fewer than n non-nil closes
// exist before base.
func NthTradingDayBack(closes []*float64, base, n int) *float64 {
	if base > len(closes) {
		base = len(closes)
	}
	count := 0
	for i := base - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		count++
		if count == n {
			return closes[i]
		}
	}
	return nil
}

// CalcChangeRate returns the percentage change from past to current, rounded
// to two decimals. Nil when either operand is missing or past is zero.
func CalcChangeRate(current, past *float64) *float64 {
	if current == nil || past == nil || *past == 0 {
		return nil
	}
	v := math.Round((*current-*past)/(*past)*10000) / 100
	return &v
}

// DividendYield returns dividend/price as a two-decimal percentage. Nil
// unless both values are present and price is positive.
func DividendYield(dividend, price *float64) *float64 {
	if dividend == nil || price == nil || *price <= 0 {
		return nil
	}
	v := math.Round(*dividend / *price * 10000) / 100
	return &v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
