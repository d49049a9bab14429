// Package export renders report results for download: CSV and XLSX.
// Renderers consume reports.Results and never call back into the engine.
package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reportengine/internal/domain/reports"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds a download name such as "invoices-20240320.csv".
func (f Format) Filename(res *reports.Results) string {
	name := "report"
	if res != nil && res.Configuration.Entity != "" {
		name = res.Configuration.Entity
	}
	stamp := time.Now().UTC()
	if res != nil && !res.GeneratedAt.IsZero() {
		stamp = res.GeneratedAt
	}
	return fmt.Sprintf("%s-%s.%s", name, stamp.Format("20060102"), f)
}

// Write renders res in the given format.
func Write(w io.Writer, f Format, res *reports.Results) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatXLSX:
		return WriteXLSX(w, res)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

var titler = cases.Title(language.English)

// Header turns "total_amount" into "Total Amount".
func Header(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' })
	return titler.String(strings.Join(words, " "))
}

// Headers maps column keys to display headers.
func Headers(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = Header(c)
	}
	return out
}

// Columns returns res.Columns, or the sorted keys of the first row when
// results were built without them.
func Columns(res *reports.Results) []string {
	if len(res.Columns) > 0 {
		return res.Columns
	}
	if len(res.Data) == 0 {
		return nil
	}
	cols := make([]string, 0, len(res.Data[0]))
	for k := range res.Data[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// FormatCell renders one value as text: nil is empty, numbers get
// thousands separators, dates drop a midnight time part.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case time.Time:
		return formatTime(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatTime(*x)
	case int:
		return humanize.Comma(int64(x))
	case int32:
		return humanize.Comma(int64(x))
	case int64:
		return humanize.Comma(x)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case decimal.Decimal:
		return formatFloat(x.InexactFloat64())
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return humanize.Comma(int64(f))
	}
	return humanize.CommafWithDigits(f, 2)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
