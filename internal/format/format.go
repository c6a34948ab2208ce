// Package format holds the small pure helpers used to present check data:
// status timestamps, relative times, durations, graph labels and Kubernetes
// resource quantities.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/apimachinery/pkg/api/resource"
)

// StatusTimeLayout is the layout of CheckStatus.Time. The backend writes UTC
// without a zone marker.
const StatusTimeLayout = "2006-01-02 15:04:05"

// ParseStatusTime parses a status timestamp as UTC. RFC3339 strings are
// accepted too and normalized to UTC.
func ParseStatusTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(StatusTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid status time %q", s)
	}
	return t.UTC(), nil
}

// TimeAgo returns a relative description of t as seen from now,
// e.g. "3 minutes ago".
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if d := now.Sub(t); d >= 0 && d < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// StatusAge is TimeAgo over a raw status timestamp. Unparseable input is
// returned as-is.
func StatusAge(raw string, now time.Time) string {
	t, err := ParseStatusTime(raw)
	if err != nil {
		return raw
	}
	return TimeAgo(t, now)
}

// Duration renders a duration in milliseconds as seconds, e.g. "1.5s".
func Duration(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64) + "s"
}

// GraphLabel formats an epoch-seconds sample time for a graph axis.
// Timeframes longer than a day include the date.
func GraphLabel(epochSeconds float64, timeframe time.Duration) string {
	t := time.Unix(int64(epochSeconds), 0)
	if timeframe > 24*time.Hour {
		return t.Format("2/1 15:04")
	}
	return t.Format("15:04")
}

// FromMillicores converts a Kubernetes CPU quantity to millicores:
// "100m" is 100, "2" is 2000.
func FromMillicores(q string) (int64, error) {
	qty, err := resource.ParseQuantity(strings.TrimSpace(q))
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", q, err)
	}
	return qty.MilliValue(), nil
}

// FromSI converts a Kubernetes quantity to its base unit: "1Ki" is 1024,
// "1M" is 1000000. Fractional results are rounded up.
func FromSI(q string) (int64, error) {
	qty, err := resource.ParseQuantity(strings.TrimSpace(q))
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", q, err)
	}
	return qty.Value(), nil
}

// Bytes renders a byte count in IEC units, e.g. "1.5 GiB".
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Truncate shortens s to limit runes, appending "..." when cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
