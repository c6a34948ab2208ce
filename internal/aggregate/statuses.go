package aggregate

import (
	"sort"
	"time"

	"github.com/rileyhilliard/statuspage/internal/api"
)

// StatusEntry pairs a status record with the check it belongs to.
type StatusEntry struct {
	Check  api.Check
	Status api.CheckStatus
	// At is Status.Time parsed as UTC, zero when unparseable.
	At time.Time
}

// WindowFactor is how many recent records per contributing check a
// multi-check set keeps.
const WindowFactor = 2

// StatusesFor collects the statuses of checkSet on server, most recent first.
// Sets with more than one member are windowed to WindowFactor records per
// check that has any status on server; a single-member set keeps its full
// history. Records with equal times keep their input order.
func StatusesFor(checkSet []api.Check, server string) []StatusEntry {
	var (
		entries      []StatusEntry
		contributing int
	)
	for _, check := range checkSet {
		statuses := check.CheckStatuses[server]
		if len(statuses) == 0 {
			continue
		}
		contributing++
		for _, st := range statuses {
			at, _ := st.ParsedTime()
			entries = append(entries, StatusEntry{Check: check, Status: st, At: at})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.After(entries[j].At)
	})

	if len(checkSet) > 1 {
		if limit := contributing * WindowFactor; len(entries) > limit {
			entries = entries[:limit]
		}
	}
	return entries
}

// Latest returns the most recent status of check on server.
func Latest(check api.Check, server string) (StatusEntry, bool) {
	entries := StatusesFor([]api.Check{check}, server)
	if len(entries) == 0 {
		return StatusEntry{}, false
	}
	return entries[0], true
}

// GroupHealthy reports whether the latest status of every member of group
// that ran on server passed. A group with no history on server counts as
// healthy.
func GroupHealthy(group Group, server string) bool {
	for _, check := range group.Checks {
		if latest, ok := Latest(check, server); ok && !latest.Status.Status {
			return false
		}
	}
	return true
}
