package yahoochart

// chartResponse is the raw chart API response envelope
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
	Events *struct {
		// keyed by event timestamp (as a string)
		Dividends map[string]DividendEvent `json:"dividends"`
	} `json:"events"`
}

// DividendEvent is one dividend payment in the requested window
type DividendEvent struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"` // seconds since epoch
}

// ChartData is a parsed daily series. Timestamps and Closes are parallel;
// Closes entries are nil on non-trading or unreported days.
type ChartData struct {
	Timestamps []int64
	Closes     []*float64
	Dividends  []DividendEvent
}
