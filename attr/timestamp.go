package attr

import (
	"fmt"
	"time"
)

// timestampLayouts covers the forms DaVis writes for acquisition timestamps.
// The canonical form is "2025-02-05T14:04:59,800000+01:00" but the
// fractional part is omitted on whole seconds and older versions use a dot
// separator or a zone without a colon. Go's ",999999" fraction is optional,
// so each layout accepts both sub-second and whole-second inputs.
var timestampLayouts = []string{
	"2006-01-02T15:04:05,999999Z07:00",
	"2006-01-02T15:04:05,999999-0700",
	"2006-01-02T15:04:05,999999",
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05.999999-0700",
	"2006-01-02T15:04:05.999999",
}

// ParseTimestamp parses a vendor timestamp string. Timestamps without
// sub-second digits parse successfully; a missing zone is taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
