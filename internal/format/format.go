// Package format turns raw backend field values into display strings.
package format

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is shown for missing or unparseable timestamps.
const Placeholder = "—"

// Score display classes.
const (
	ScoreHigh   = "high"
	ScoreMedium = "medium"
	ScoreLow    = "low"
)

var dateTimeLayouts = map[language.Base]string{
	baseOf(language.Japanese): "2006年1月2日 15:04",
}

const defaultDateTimeLayout = "Jan 2, 2006, 15:04"

func baseOf(tag language.Tag) language.Base {
	b, _ := tag.Base()
	return b
}

// ParseTimestamp accepts date-only, date-time and ISO-8601 strings.
// Values without a zone are read in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateTime renders raw with year, abbreviated month, day, hour and minute
// in the viewer's locale.
func DateTime(raw *string, tag language.Tag, loc *time.Location) string {
	if raw == nil {
		return Placeholder
	}
	t, ok := ParseTimestamp(*raw, loc)
	if !ok {
		return Placeholder
	}
	layout, ok := dateTimeLayouts[baseOf(tag)]
	if !ok {
		layout = defaultDateTimeLayout
	}
	return t.Format(layout)
}

// DateKey returns the calendar date of a timestamp as YYYY-MM-DD in loc.
// Text that does not parse keys on everything before the first space or
// 'T' separator.
func DateKey(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if t, ok := ParseTimestamp(raw, loc); ok {
		if loc == nil {
			loc = time.UTC
		}
		return t.In(loc).Format("2006-01-02")
	}
	if i := strings.IndexAny(raw, " T"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// ScoreClass classifies a 0-100 score for styling.
func ScoreClass(score float64) string {
	switch {
	case score >= 80:
		return ScoreHigh
	case score >= 60:
		return ScoreMedium
	default:
		return ScoreLow
	}
}

// Number formats v with exactly decimals fraction digits using the
// grouping rules of tag.
func Number(tag language.Tag, v float64, decimals int) string {
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(v,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals),
	))
}
