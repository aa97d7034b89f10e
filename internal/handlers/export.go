package handlers

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/epeers/corpactions/internal/models"
	"github.com/epeers/corpactions/internal/services"
)

// baseColumns is how many leading original columns the export keeps
const baseColumns = 9

// notAvailable fills any field whose value could not be determined
const notAvailable = "N/A"

var enrichedColumns = []string{
	"Close Price",
	"Dividend",
	"Dividend Yield (%)",
	"Change 1D (%)",
	"Change 1W (%)",
	"Change 2W (%)",
	"Change 1M (%)",
}

// WriteEnrichedCSV serializes the sheet plus enrichment columns: UTF-8 with a
// BOM, CRLF line endings, original metadata lines passed through verbatim,
// then a header and one line per input data row with the first nine original
// columns followed by the derived fields. Duplicate identifier rows all
// receive the values of their shared lookup.
func WriteEnrichedCSV(w io.Writer, sheet *models.Sheet, run *models.RunResult, idCol int) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	for _, line := range sheet.MetadataLines {
		if _, err := bw.WriteString(line + "\r\n"); err != nil {
			return fmt.Errorf("failed to write metadata line: %w", err)
		}
	}

	cw := csv.NewWriter(bw)
	cw.UseCRLF = true

	header := padTo(sheet.Header, baseColumns)
	header = append(header, enrichedColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range sheet.Rows {
		record := padTo(row, baseColumns)

		code := ""
		if idCol < len(row) {
			code = strings.TrimSpace(row[idCol])
		}
		res := run.ResultsByCode[code]

		record = append(record, enrichedFields(res)...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("row %d: failed to write record: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return bw.Flush()
}

func enrichedFields(res *models.EnrichedResult) []string {
	if res == nil {
		res = &models.EnrichedResult{}
	}
	yield := services.DividendYield(res.Dividend, res.Price)
	return []string{
		formatValue(res.Price, 1),
		formatValue(res.Dividend, 2),
		formatValue(yield, 2),
		formatValue(res.Change1D, 2),
		formatValue(res.Change1W, 2),
		formatValue(res.Change2W, 2),
		formatValue(res.Change1M, 2),
	}
}

func formatValue(v *float64, decimals int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// padTo truncates or right-pads cells to exactly n fields
func padTo(cells []string, n int) []string {
	out := make([]string, n)
	copy(out, cells)
	return out
}
