// Package instant normalizes heterogeneous timestamp representations into
// a single comparable time.Time. It is the sole authority for instant
// comparison in the attendance engine: every date value arriving from a
// collaborator is routed through Normalize before being compared.
package instant

import "time"

// Seconds is the storage-engine timestamp shape: whole seconds since the
// Unix epoch plus a nanosecond remainder.
type Seconds struct {
	Seconds int64
	Nanos   int64
}

// Time converts the storage timestamp to a time.Time in UTC.
func (s Seconds) Time() time.Time {
	return time.Unix(s.Seconds, s.Nanos).UTC()
}

// Epoch returns instant zero, the fallback for values that cannot be
// normalized. Downstream comparisons stay well-defined: an epoch instant
// is before any real event.
func Epoch() time.Time {
	return time.Unix(0, 0).UTC()
}

// Normalize converts a date-like value into a time.Time. The accepted
// shapes form a closed set; anything else degrades to the epoch rather
// than producing an invalid instant. Normalize never panics.
func Normalize(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t == nil {
			return Epoch()
		}
		return *t
	case string:
		return parseISO(t)
	case Seconds:
		return t.Time()
	case *Seconds:
		if t == nil {
			return Epoch()
		}
		return t.Time()
	default:
		return Epoch()
	}
}

// ISO-8601 layouts accepted for string timestamps, most specific first.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISO(s string) time.Time {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return Epoch()
}
