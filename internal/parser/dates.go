package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const (
	layoutDayFirst = "02-01-2006"
	layoutISO      = "2006-01-02"
)

var (
	dayFirstShape = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	isoShape      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// flexibleDates parses anything the fixed layouts do not cover. Dates are
// interpreted in UTC.
var flexibleDates = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats: append([]string{
		"2006-01-02",
		"2006/01/02",
		"2006.01.02",
		"02.01.2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2006-01-02T15:04:05",
		"1/2/06",
	}, now.TimeFormats...),
}

// dateParser applies one layout to a whole column, chosen from the first
// non-empty sample, with a per-row best-effort fallback.
type dateParser struct {
	layout string // empty means best-effort only
}

func detectDateLayout(sample string) dateParser {
	sample = strings.TrimSpace(sample)
	switch {
	case dayFirstShape.MatchString(sample):
		return dateParser{layout: layoutDayFirst}
	case isoShape.MatchString(sample):
		return dateParser{layout: layoutISO}
	default:
		return dateParser{}
	}
}

// parse returns the calendar date at midnight UTC. fellBack reports whether
// the chosen layout failed and the best-effort parser was used.
func (d dateParser) parse(raw string) (date time.Time, fellBack bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}

	if d.layout != "" {
		if t, err := time.ParseInLocation(d.layout, raw, time.UTC); err == nil {
			return truncateToDay(t), false, true
		}
		fellBack = true
	}

	t, err := flexibleDates.Parse(raw)
	if err != nil {
		return time.Time{}, fellBack, false
	}
	return truncateToDay(t), fellBack, true
}

func truncateToDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
