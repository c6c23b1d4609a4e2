package fixture

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	offsetRe = regexp.MustCompile(`^[+-]?(\d+[smhdw])+$`)
	partRe   = regexp.MustCompile(`(\d+)([smhdw])`)
)

var unitDurations = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ResolveTime resolves a fixture time against now. Accepted forms:
//
//	""  or "now"       now
//	-1d, +2m, -1d12h   offset from now (units s, m, h, d, w)
//	RFC 3339           absolute
//
// The result is always UTC.
func ResolveTime(s string, now time.Time) (time.Time, error) {
	if s == "" || s == "now" {
		return now.UTC(), nil
	}
	if offsetRe.MatchString(s) {
		d, err := parseOffset(s)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(d).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want now, an offset like -1d or RFC 3339", s)
	}
	return t.UTC(), nil
}

func parseOffset(s string) (time.Duration, error) {
	sign := time.Duration(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	var total time.Duration
	for _, m := range partRe.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q: %w", s, err)
		}
		total += time.Duration(n) * unitDurations[m[2]]
	}
	return sign * total, nil
}
