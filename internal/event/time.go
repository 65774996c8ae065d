package event

import "time"

// Accepted wall-clock layouts for zone-naive input.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func loadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// normalizeOccurrence turns a user-entered local time into the canonical UTC
// instant. Zone-aware input (RFC3339) is converted into the named zone first;
// zone-naive input is interpreted as wall-clock time in that zone.
func normalizeOccurrence(raw, tzName string) (time.Time, error) {
	loc, err := loadZone(tzName)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc).UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidOccurrence
}

// localDayRange returns the UTC instants bounding the inclusive local
// calendar day [00:00:00, 23:59:59.999999999] in loc. The boundaries are
// computed as wall-clock times in the target zone, so DST shifts fall where
// the zone says they do.
func localDayRange(day time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
	return start.UTC(), end.UTC()
}
