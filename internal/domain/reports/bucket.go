package reports

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order when a date arrives as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ToTime converts a row value into a time in loc.
// Accepts time.Time, *time.Time, date strings and bucket labels (so
// re-bucketing a label yields the same label).
func ToTime(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case time.Time:
		return t.In(loc), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return t.In(loc), true
	case string:
		return parseDate(strings.TrimSpace(t), loc)
	}
	return time.Time{}, false
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if y, q, ok := parseQuarterLabel(s); ok {
		return time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, loc), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

func parseQuarterLabel(s string) (year, quarter int, ok bool) {
	if _, err := fmt.Sscanf(s, "%4d-Q%1d", &year, &quarter); err != nil {
		return 0, 0, false
	}
	if quarter < 1 || quarter > 4 || len(s) != 7 {
		return 0, 0, false
	}
	return year, quarter, true
}

// BucketLabel converts a date value into its period label:
//
//	day     2024-03-14
//	week    2024-03-11 (Monday of the ISO week; Sunday belongs to the prior week)
//	month   2024-03
//	quarter 2024-Q1
//	year    2024
//
// Values that are not dates return false.
func BucketLabel(v any, g DateGrouping, loc *time.Location) (string, bool) {
	t, ok := ToTime(v, loc)
	if !ok {
		return "", false
	}

	switch g {
	case GroupByDay:
		return t.Format("2006-01-02"), true
	case GroupByWeek:
		offset := (int(t.Weekday()) + 6) % 7
		monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
		return monday.Format("2006-01-02"), true
	case GroupByMonth:
		return t.Format("2006-01"), true
	case GroupByQuarter:
		q := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", t.Year(), q), true
	case GroupByYear:
		return fmt.Sprintf("%04d", t.Year()), true
	}
	return "", false
}

// presetRange resolves a date preset to [from, to) in loc relative to now.
func presetRange(p DatePreset, now time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	switch p {
	case PresetToday:
		return today, today.AddDate(0, 0, 1), true
	case PresetYesterday:
		return today.AddDate(0, 0, -1), today, true
	case PresetLast7Days:
		return today.AddDate(0, 0, -6), today.AddDate(0, 0, 1), true
	case PresetLast30Days:
		return today.AddDate(0, 0, -29), today.AddDate(0, 0, 1), true
	case PresetThisMonth:
		return monthStart, monthStart.AddDate(0, 1, 0), true
	case PresetLastMonth:
		return monthStart.AddDate(0, -1, 0), monthStart, true
	case PresetThisQuarter:
		qStart := time.Date(now.Year(), time.Month((int(now.Month())-1)/3*3+1), 1, 0, 0, 0, 0, loc)
		return qStart, qStart.AddDate(0, 3, 0), true
	case PresetThisYear:
		yStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		return yStart, yStart.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}
