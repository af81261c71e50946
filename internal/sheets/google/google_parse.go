package google

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"fintrack/internal/report"
)

// toValues builds the value matrix for a Values.Update call.
func toValues(header []string, rows iter.Seq[report.Row]) ([][]interface{}, int) {
	values := [][]interface{}{toRow(header)}
	n := 0
	for r := range rows {
		values = append(values, toRow(r))
		n++
	}
	return values, n
}

func toRow(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// sheetRange returns an A1 range on sheet, quoting the name when needed.
func sheetRange(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a
// 4-digit year. A "%d" in base is replaced by the year instead.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if strings.Contains(base, "%d") {
		return fmt.Sprintf(base, year)
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
