package aggregate

import (
	"sort"
	"strings"
)

// ServerOption is one entry of the server picklist.
type ServerOption struct {
	Label string
	Value string
}

// ServerLabel is the part of a server identifier before the first '@'.
func ServerLabel(server string) string {
	label, _, _ := strings.Cut(server, "@")
	return label
}

// OrderedServers sorts servers by label and drops later entries that repeat
// a label.
func OrderedServers(servers []string) []ServerOption {
	options := make([]ServerOption, 0, len(servers))
	for _, s := range servers {
		options = append(options, ServerOption{Label: ServerLabel(s), Value: s})
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Label < options[j].Label
	})

	out := options[:0]
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if seen[o.Label] {
			continue
		}
		seen[o.Label] = true
		out = append(out, o)
	}
	return out
}

// ServerValues returns the identifiers of OrderedServers.
func ServerValues(servers []string) []string {
	options := OrderedServers(servers)
	values := make([]string, len(options))
	for i, o := range options {
		values[i] = o.Value
	}
	return values
}
