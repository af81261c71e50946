// Package sheets defines the outbound port for spreadsheet exports.
package sheets

import (
	"context"
	"iter"

	"fintrack/internal/report"
)

// TableWriter replaces the contents of a named sheet with a header row and
// data rows, returning the number of data rows written.
type TableWriter interface {
	WriteTable(ctx context.Context, sheet string, header []string, rows iter.Seq[report.Row]) (int, error)
}
