// Package resolver derives tradable tickers from raw identifier cells and
// deduplicates identifiers across rows.
package resolver

import (
	"strings"

	"github.com/epeers/corpactions/internal/models"
)

// ToTicker derives an exchange-qualified symbol from a raw identifier cell.
// The identifier is trimmed; its first four characters must all be ASCII
// alphanumerics. Returns "" when the identifier cannot be resolved.
func ToTicker(raw, suffix string) string {
	code := strings.TrimSpace(raw)
	if len(code) < 4 {
		return ""
	}
	head := code[:4]
	for i := 0; i < len(head); i++ {
		if !isAlphanumeric(head[i]) {
			return ""
		}
	}
	return head + suffix
}

func isAlphanumeric(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Resolve scans rows in order and produces one StockRef per unique trimmed
// identifier, in first-seen order. The first row carrying an identifier
// determines its target date; later duplicates are ignored. Unresolvable
// identifiers still yield a StockRef with an empty Ticker so the run can
// report them as errors.
func Resolve(rows [][]string, idCol, dateCol int, suffix string) []models.StockRef {
	seen := make(map[string]bool)
	var refs []models.StockRef

	for _, row := range rows {
		code := ""
		if idCol < len(row) {
			code = strings.TrimSpace(row[idCol])
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		date := ""
		if dateCol >= 0 && dateCol < len(row) {
			date = strings.TrimSpace(row[dateCol])
		}

		refs = append(refs, models.StockRef{
			RawCode: code,
			Ticker:  ToTicker(code, suffix),
			Date:    date,
		})
	}

	return refs
}
