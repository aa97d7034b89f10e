package models

// StockRef pairs a deduplicated raw identifier with its derived ticker and the
// target date from the first row that carried it.
type StockRef struct {
	RawCode string `json:"raw_code"`
	Ticker  string `json:"ticker,omitempty"` // empty when the identifier is unresolvable
	Date    string `json:"date"`             // target date, YYYY/MM/DD
}

// EnrichedResult is the outcome of one price lookup. Numeric fields are nil
// when the value could not be determined; Error is set whenever Price is nil.
type EnrichedResult struct {
	Price      *float64 `json:"price"`                 // closing price, 1 decimal place
	Dividend   *float64 `json:"dividend"`              // 2 decimal places
	ActualDate string   `json:"actual_date,omitempty"` // date actually matched, may differ from the requested date
	Change1D   *float64 `json:"change_1d"`             // 1 trading day back, percent
	Change1W   *float64 `json:"change_1w"`             // 5 trading days back
	Change2W   *float64 `json:"change_2w"`             // 10 trading days back
	Change1M   *float64 `json:"change_1m"`             // 21 trading days back
	Error      string   `json:"error,omitempty"`
}

// ErrorRecord captures one failed lookup, in arrival order.
type ErrorRecord struct {
	Code   string `json:"code"`
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// RunCounts are the aggregate totals of an enrichment run. NotAvailable and
// Errors are computed independently even though every null-price lookup also
// records an error; no invariant ties the two together.
type RunCounts struct {
	Total        int `json:"total"`
	Success      int `json:"success"`
	NotAvailable int `json:"not_available"`
	Errors       int `json:"errors"`
}

// RunResult is the immutable outcome of a single orchestrator invocation.
// It is built fresh on every run and never mutated afterwards.
type RunResult struct {
	ResultsByCode map[string]*EnrichedResult `json:"results_by_code"`
	Errors        []ErrorRecord              `json:"errors"`
	Counts        RunCounts                  `json:"counts"`
}
