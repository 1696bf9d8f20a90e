// Package dateformat renders timestamps through the token patterns offered by
// the date/time stamp dialog ("yyyy-MM-dd HH:mm", "EEEE, MMMM d", ...).
package dateformat

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultFormat is used when a stamp carries no format.
const DefaultFormat = "yyyy-MM-dd HH:mm"

type token struct {
	text   string
	render func(t time.Time) string
}

// tokens is ordered longest first so "MMMM" wins over "MM".
var tokens = []token{
	{"yyyy", func(t time.Time) string { return pad(t.Year(), 4) }},
	{"MMMM", func(t time.Time) string { return t.Month().String() }},
	{"EEEE", func(t time.Time) string { return t.Weekday().String() }},
	{"MMM", func(t time.Time) string { return t.Month().String()[:3] }},
	{"EEE", func(t time.Time) string { return t.Weekday().String()[:3] }},
	{"yy", func(t time.Time) string { return pad(t.Year()%100, 2) }},
	{"MM", func(t time.Time) string { return pad(int(t.Month()), 2) }},
	{"dd", func(t time.Time) string { return pad(t.Day(), 2) }},
	{"HH", func(t time.Time) string { return pad(t.Hour(), 2) }},
	{"hh", func(t time.Time) string { return pad(hour12(t), 2) }},
	{"mm", func(t time.Time) string { return pad(t.Minute(), 2) }},
	{"ss", func(t time.Time) string { return pad(t.Second(), 2) }},
	{"M", func(t time.Time) string { return strconv.Itoa(int(t.Month())) }},
	{"d", func(t time.Time) string { return strconv.Itoa(t.Day()) }},
	{"H", func(t time.Time) string { return strconv.Itoa(t.Hour()) }},
	{"h", func(t time.Time) string { return strconv.Itoa(hour12(t)) }},
	{"a", func(t time.Time) string {
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	}},
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}

// Location resolves an IANA zone name. Empty and unknown names yield UTC.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Format renders t in zone tz using format. Text inside single quotes is
// copied verbatim ('' is a literal quote); any other character that does not
// start a token is copied as is.
func Format(t time.Time, format, tz string) string {
	if format == "" {
		format = DefaultFormat
	}
	t = t.In(Location(tz))

	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '\'' {
			i = quoted(&b, format, i+1)
			continue
		}
		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(format[i:], tok.text) {
				b.WriteString(tok.render(t))
				i += len(tok.text)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}

// quoted copies the literal starting at format[i], just past an opening
// quote, and returns the index after its closing quote. A doubled quote
// writes one quote, both inside a literal and as a bare "''".
func quoted(b *strings.Builder, format string, i int) int {
	if i < len(format) && format[i] == '\'' {
		b.WriteByte('\'')
		return i + 1
	}
	for i < len(format) {
		c := format[i]
		if c != '\'' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '\'' {
			b.WriteByte('\'')
			i += 2
			continue
		}
		return i + 1
	}
	return i
}
