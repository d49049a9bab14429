package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"reportengine/internal/core/types"
	"reportengine/internal/domain/reports"
)

const (
	dataSheet     = "Report"
	metadataSheet = "Metadata"

	// built-in number formats
	numFmtInteger = 3 // #,##0
	numFmtDecimal = 4 // #,##0.00
)

// WriteXLSX writes a workbook with a data sheet and a metadata sheet.
// Numbers stay numeric and carry a grouping number format.
func WriteXLSX(w io.Writer, res *reports.Results) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return err
	}
	if err := writeDataSheet(f, res); err != nil {
		return fmt.Errorf("data sheet: %w", err)
	}
	if err := writeMetadataSheet(f, res); err != nil {
		return fmt.Errorf("metadata sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeDataSheet(f *excelize.File, res *reports.Results) error {
	columns := Columns(res)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	intStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtInteger})
	if err != nil {
		return err
	}
	decStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDecimal})
	if err != nil {
		return err
	}

	for i, header := range Headers(columns) {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(dataSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(dataSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx, row := range res.Data {
		for colIdx, col := range columns {
			v := row[col]
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)

			if types.IsNumeric(v) {
				n, _ := types.ToFloat64(v)
				if err := f.SetCellFloat(dataSheet, cell, n, -1, 64); err != nil {
					return err
				}
				style := decStyle
				if n == float64(int64(n)) {
					style = intStyle
				}
				if err := f.SetCellStyle(dataSheet, cell, cell, style); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellValue(dataSheet, cell, FormatCell(v)); err != nil {
				return err
			}
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(dataSheet, col, col, 18); err != nil {
			return err
		}
	}
	if len(columns) > 0 {
		return f.SetPanes(dataSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func writeMetadataSheet(f *excelize.File, res *reports.Results) error {
	if _, err := f.NewSheet(metadataSheet); err != nil {
		return err
	}

	cfg := res.Configuration
	groups := make([]string, 0, len(cfg.GroupBy))
	for _, g := range cfg.GroupBy {
		if g.DateGrouping != "" {
			groups = append(groups, fmt.Sprintf("%s (%s)", g.Field, g.DateGrouping))
			continue
		}
		groups = append(groups, g.Field)
	}
	aggs := make([]string, 0, len(cfg.Aggregations))
	for _, a := range cfg.Aggregations {
		aggs = append(aggs, fmt.Sprintf("%s(%s) as %s", a.Function, a.Field, a.OutputKey()))
	}

	rows := [][2]any{
		{"Entity", cfg.Entity},
		{"Generated At", res.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total Rows", res.TotalRows},
		{"Returned Rows", len(res.Data)},
		{"Execution Time (ms)", res.ExecutionTime},
		{"Filters", len(cfg.Filters)},
		{"Group By", strings.Join(groups, ", ")},
		{"Aggregations", strings.Join(aggs, ", ")},
		{"Chart Type", cfg.ChartType},
	}
	for i, r := range rows {
		if err := f.SetSheetRow(metadataSheet, fmt.Sprintf("A%d", i+1), &[]any{r[0], r[1]}); err != nil {
			return err
		}
	}
	return f.SetColWidth(metadataSheet, "A", "B", 24)
}
