package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/statuspage/internal/format"
)

// Snapshot is the full {checks, servers} state returned by the aggregate endpoint.
type Snapshot struct {
	Checks  []Check  `json:"checks"`
	Servers []string `json:"servers"`
}

// Check is a named, typed health probe run independently per server.
type Check struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Namespace   string `json:"namespace"`
	Endpoint    string `json:"endpoint"`
	CanaryName  string `json:"canaryName"`

	// CheckStatuses maps a server to its status history. A missing entry
	// or a nil slice means the check never ran on that server.
	CheckStatuses map[string][]CheckStatus `json:"checkStatuses"`
	Health        map[string]Health        `json:"health"`
}

// RanOn reports whether the check has a status history entry for server,
// even an empty one.
func (c Check) RanOn(server string) bool {
	statuses, ok := c.CheckStatuses[server]
	return ok && statuses != nil
}

// CheckStatus is one historical execution result of a check on one server.
type CheckStatus struct {
	Time     string `json:"time"`
	Status   bool   `json:"status"`
	Duration int64  `json:"duration"`
	Message  string `json:"message,omitempty"`

	// Key is a derived UI identifier, assigned when a snapshot is stored.
	Key string `json:"key,omitempty"`
}

// ParsedTime returns Time interpreted as UTC.
func (s CheckStatus) ParsedTime() (time.Time, error) {
	return format.ParseStatusTime(s.Time)
}

// Health is the per-(check, server) summary with display strings.
type Health struct {
	Latency string `json:"latency"`
	Uptime  string `json:"uptime"`
}

// latencyObject is the backend's structured latency summary in milliseconds.
type latencyObject struct {
	P99       float64 `json:"p99"`
	P97       float64 `json:"p97"`
	P95       float64 `json:"p95"`
	Rolling1H float64 `json:"rolling1h"`
}

func (l latencyObject) String() string {
	var parts []string
	add := func(name string, ms float64) {
		if ms != 0 {
			parts = append(parts, name+"="+msAge(ms))
		}
	}
	add("p99", l.P99)
	add("p95", l.P95)
	add("p97", l.P97)
	add("rolling1h", l.Rolling1H)
	return strings.Join(parts, " ")
}

func msAge(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond))
	if d < time.Second {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return d.Round(10 * time.Millisecond).String()
}

// uptimeObject is the backend's structured pass/fail counter.
type uptimeObject struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

func (u uptimeObject) String() string {
	if u.Passed == 0 && u.Failed == 0 {
		return ""
	}
	if u.Passed == 0 {
		return fmt.Sprintf("0/%d 0%%", u.Failed)
	}
	total := u.Passed + u.Failed
	pct := 100.0 * (1 - float64(u.Failed)/float64(total))
	return fmt.Sprintf("%s/%s (%0.1f%%)", humanize.Comma(int64(u.Passed)), humanize.Comma(int64(total)), pct)
}

// UnmarshalJSON accepts latency and uptime either as display strings or as
// the backend's structured objects.
func (h *Health) UnmarshalJSON(data []byte) error {
	var raw struct {
		Latency json.RawMessage `json:"latency"`
		Uptime  json.RawMessage `json:"uptime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if h.Latency, err = decodeDisplay(raw.Latency, func(b []byte) (fmt.Stringer, error) {
		var l latencyObject
		err := json.Unmarshal(b, &l)
		return l, err
	}); err != nil {
		return fmt.Errorf("latency: %w", err)
	}
	if h.Uptime, err = decodeDisplay(raw.Uptime, func(b []byte) (fmt.Stringer, error) {
		var u uptimeObject
		err := json.Unmarshal(b, &u)
		return u, err
	}); err != nil {
		return fmt.Errorf("uptime: %w", err)
	}
	return nil
}

func decodeDisplay(raw json.RawMessage, object func([]byte) (fmt.Stringer, error)) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	if raw[0] == '{' {
		v, err := object(raw)
		if err != nil {
			return "", err
		}
		return v.String(), nil
	}
	return string(raw), nil
}

// TriggerRequest is the body of POST /triggerCheck.
type TriggerRequest struct {
	Server    string `json:"server"`
	CheckKey  string `json:"checkKey"`
	CheckType string `json:"checkType,omitempty"`
}

// GraphRequest is the body of POST /prometheus/graph. Timeframe is in seconds.
type GraphRequest struct {
	CheckType  string `json:"checkType"`
	CanaryName string `json:"canaryName"`
	CheckKey   string `json:"checkKey"`
	Timeframe  int64  `json:"timeframe"`
}

// GraphResponse holds the success, failed and latency series for a check.
type GraphResponse struct {
	Success []Point `json:"success"`
	Failed  []Point `json:"failed"`
	Latency []Point `json:"latency"`
}

// Point is a single time series sample.
type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// UnmarshalJSON accepts value as a JSON number or a numeric string, the
// latter being what Prometheus returns.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time  float64         `json:"time"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Time = raw.Time

	v := bytes.Trim(bytes.TrimSpace(raw.Value), `"`)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		p.Value = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return fmt.Errorf("invalid point value %s", raw.Value)
	}
	p.Value = f
	return nil
}

// Validate checks a snapshot received from the network.
func (s *Snapshot) Validate() error {
	for i, c := range s.Checks {
		if c.Key == "" {
			return fmt.Errorf("check %d (%s/%s) has no key", i, c.Type, c.Name)
		}
		for server, statuses := range c.CheckStatuses {
			for j, st := range statuses {
				if _, err := st.ParsedTime(); err != nil {
					return fmt.Errorf("check %s on %s status %d: %w", c.Key, server, j, err)
				}
				if st.Duration < 0 {
					return fmt.Errorf("check %s on %s status %d: negative duration %d", c.Key, server, j, st.Duration)
				}
			}
		}
	}
	return nil
}
