package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"reportengine/internal/domain/reports"
)

// WriteCSV writes a header row followed by one line per result row.
func WriteCSV(w io.Writer, res *reports.Results) error {
	writer := csv.NewWriter(w)
	columns := Columns(res)

	if err := writer.Write(Headers(columns)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range res.Data {
		for i, col := range columns {
			record[i] = FormatCell(row[col])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
