package models

// ErrorResponse is the standard error body returned by all endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SheetSummary is returned after a successful upload so the caller can pick
// the date column before starting a run
type SheetSummary struct {
	Columns       []string `json:"columns"`
	RowCount      int      `json:"row_count"`
	MetadataLines int      `json:"metadata_lines"`
}

// EnrichRequest selects the date column for an enrichment run. The identifier
// column is fixed by the file format and not selectable.
type EnrichRequest struct {
	DateColumn int `json:"date_column"`
}

// EnrichResponse wraps a completed run together with the resolved refs,
// so the caller can line results up with rows without re-deriving tickers
type EnrichResponse struct {
	Stocks []StockRef `json:"stocks"`
	Run    *RunResult `json:"run"`
}
