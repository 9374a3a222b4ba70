package ingestion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrUnparseableDate is returned for watch dates in no supported format
var ErrUnparseableDate = errors.New("unparseable watch date")

// monthNames maps lower-case month tokens, trailing dots removed, to months.
// Russian exports use the genitive ("мая") and abbreviated ("нояб.") forms.
var monthNames = map[string]time.Month{
	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,

	"январь": time.January, "февраль": time.February, "март": time.March,
	"апрель": time.April, "май": time.May, "июнь": time.June,
	"июль": time.July, "август": time.August, "сентябрь": time.September,
	"октябрь": time.October, "ноябрь": time.November, "декабрь": time.December,

	"янв": time.January, "фев": time.February, "февр": time.February, "мар": time.March,
	"апр": time.April, "июн": time.June, "июл": time.July, "авг": time.August,
	"сен": time.September, "сент": time.September, "окт": time.October,
	"ноя": time.November, "нояб": time.November, "дек": time.December,
}

func init() {
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		monthNames[full] = m
		monthNames[full[:3]] = m
	}
	monthNames["sept"] = time.September
}

// isoLayouts are the layouts written by the processed-CSV step
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseWatchDate parses a watch timestamp from an export.
//
// Accepted forms:
//   - "13 мая 2024 г., 21:42:17 MSK" and abbreviated Russian months
//   - "13 May 2024, 21:42:17 GMT" and "May 13, 2024, 9:42:17 PM EST"
//   - "2024-05-13", "2024-05-13 21:42:17" and RFC 3339
//
// Time zone abbreviations are ignored; wall times are placed in loc. A missing time of day means midnight.
func ParseWatchDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	// NFKC turns U+202F and U+00A0 into plain spaces
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableDate)
	}

	for _, layout := range isoLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return parseTextDate(s, loc)
}

func parseTextDate(s string, loc *time.Location) (time.Time, error) {
	// a Caser keeps state and cannot be shared between goroutines
	lower := cases.Lower(language.Und)

	var (
		day, year          int
		month              time.Month
		hour, minute, sec  int
		meridiem           string
		haveTime, haveYear bool
	)

	for _, tok := range strings.Fields(strings.ReplaceAll(s, ",", " ")) {
		tok = strings.TrimSuffix(lower.String(tok), ".")
		switch {
		case tok == "":
		case monthNames[tok] != 0 && month == 0:
			month = monthNames[tok]
		case strings.Contains(tok, ":") && !haveTime:
			h, m, sc, ok := parseClock(tok)
			if !ok {
				return time.Time{}, fmt.Errorf("%w: bad time %q in %q", ErrUnparseableDate, tok, s)
			}
			hour, minute, sec, haveTime = h, m, sc, true
		case tok == "am" || tok == "pm" || tok == "a.m" || tok == "p.m":
			meridiem = tok[:1]
		default:
			n, err := strconv.Atoi(tok)
			if err != nil {
				// "г", "в", zone abbreviations
				continue
			}
			switch {
			case len(tok) == 4 && !haveYear:
				year, haveYear = n, true
			case len(tok) <= 2 && day == 0:
				day = n
			}
		}
	}

	if day == 0 || month == 0 || !haveYear {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
	}

	switch meridiem {
	case "a":
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 12 {
			hour += 12
		}
	}

	t := time.Date(year, month, day, hour, minute, sec, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("%w: no day %d in %s %d", ErrUnparseableDate, day, month, year)
	}
	return t, nil
}

func parseClock(tok string) (h, m, s int, ok bool) {
	parts := strings.Split(tok, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], true
}
