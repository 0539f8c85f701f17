package google

import (
	"fmt"
	"strings"

	"aulas/internal/core"
)

// rowsToRecords converts a values matrix whose first row is a header into one
// record per non-empty row. Blank header cells are skipped; cells missing at
// the end of a short row are absent from the record.
func rowsToRecords(values [][]any) []core.RawRecord {
	out := make([]core.RawRecord, 0)
	if len(values) == 0 {
		return out
	}
	headers := toStrings(values[0])
	for _, row := range values[1:] {
		if isBlank(row) {
			continue
		}
		rec := make(core.RawRecord, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []any) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}
