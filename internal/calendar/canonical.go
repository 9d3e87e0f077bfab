package calendar

import (
	"regexp"
	"time"
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CanonicalDate is either a raw string as received at the boundary or an
// instant. Build one with Raw or Instant; Normalize is the only way to read it.
type CanonicalDate struct {
	raw     string
	instant time.Time
	isRaw   bool
}

func Raw(s string) CanonicalDate {
	return CanonicalDate{raw: s, isRaw: true}
}

func Instant(t time.Time) CanonicalDate {
	return CanonicalDate{instant: t}
}

// Normalize reduces d to a canonical day string. ok is false when d cannot be
// interpreted; callers skip such records.
//
// Accepted raw forms: "YYYY-MM-DD" (taken as-is), RFC3339 instants, and
// anything whose first ten characters form a valid day followed by 'T'.
func (c Calendar) Normalize(d CanonicalDate) (string, bool) {
	if !d.isRaw {
		if d.instant.IsZero() {
			return "", false
		}
		return c.Day(d.instant), true
	}

	s := d.raw
	if dayPattern.MatchString(s) {
		if _, err := time.Parse(DateLayout, s); err != nil {
			return "", false
		}
		return s, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return c.Day(t), true
	}
	if len(s) > 10 && s[10] == 'T' && dayPattern.MatchString(s[:10]) {
		if _, err := time.Parse(DateLayout, s[:10]); err == nil {
			return s[:10], true
		}
	}
	return "", false
}
