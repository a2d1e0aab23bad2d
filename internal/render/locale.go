package render

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"listening-review/internal/format"
)

// Locale bundles the viewer's language with the display helpers templates
// call as methods.
type Locale struct {
	tag     language.Tag
	printer *message.Printer
	loc     *time.Location
}

func NewLocale(tag language.Tag, loc *time.Location) Locale {
	if loc == nil {
		loc = time.Local
	}
	return Locale{tag: tag, printer: message.NewPrinter(tag), loc: loc}
}

func (l Locale) Tag() language.Tag { return l.tag }

// Lang is the value for the html lang attribute.
func (l Locale) Lang() string { return l.tag.String() }

// T translates key and applies printf-style args.
func (l Locale) T(key string, args ...interface{}) string {
	return l.printer.Sprintf(key, args...)
}

func (l Locale) Date(raw *string) string {
	return format.DateTime(raw, l.tag, l.loc)
}

func (l Locale) Score(score *float64) string {
	if score == nil {
		return l.T("N/A")
	}
	return format.Number(l.tag, *score, 0)
}

func (l Locale) ScoreClass(score *float64) string {
	if score == nil {
		return format.ScoreLow
	}
	return format.ScoreClass(*score)
}

// Minutes shows whole minutes without decimals and fractional ones with one.
func (l Locale) Minutes(v float64) string {
	decimals := 0
	if v != math.Trunc(v) {
		decimals = 1
	}
	return format.Number(l.tag, v, decimals)
}
