// Package aggregate turns a flat snapshot into the grouped, sorted and
// windowed view model the dashboard renders. Everything here is pure: inputs
// are never mutated and equal inputs give equal outputs.
package aggregate

import (
	"sort"

	"github.com/rileyhilliard/statuspage/internal/api"
)

// MultipleLabel marks checks whose description is just their endpoint.
// Such checks of the same name and type are shown as one merged group.
const MultipleLabel = "multiple"

// Group is a set of checks displayed as one row.
type Group struct {
	Namespace string
	// Name is the display name: the label when it is a real description,
	// otherwise the check name.
	Name string
	// CheckName and Type are shared by every member.
	CheckName string
	Type      string
	// Label is the description the members share, or MultipleLabel.
	Label  string
	Checks []api.Check
}

// Merged reports whether the group stands for several endpoint-described
// checks.
func (g Group) Merged() bool {
	return g.Label == MultipleLabel
}

// NamespaceGroup holds the groups of one namespace, ordered by display name.
type NamespaceGroup struct {
	Namespace string
	Groups    []Group
}

type groupKey struct {
	name, typ, label string
}

// GroupChecks partitions checks by namespace and then by (name, type,
// description). A check whose description equals its endpoint is labelled
// MultipleLabel; a MultipleLabel group with one member is relabelled under
// that member's raw description. Namespaces sort alphabetically and groups
// sort by display name.
func GroupChecks(checks []api.Check) []NamespaceGroup {
	type nsState struct {
		order  []groupKey
		groups map[groupKey][]api.Check
	}
	namespaces := make(map[string]*nsState)

	for _, check := range checks {
		ns, ok := namespaces[check.Namespace]
		if !ok {
			ns = &nsState{groups: make(map[groupKey][]api.Check)}
			namespaces[check.Namespace] = ns
		}
		key := groupKey{name: check.Name, typ: check.Type, label: labelOf(check)}
		if _, seen := ns.groups[key]; !seen {
			ns.order = append(ns.order, key)
		}
		ns.groups[key] = append(ns.groups[key], check)
	}

	names := make([]string, 0, len(namespaces))
	for name := range namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]NamespaceGroup, 0, len(names))
	for _, name := range names {
		ns := namespaces[name]
		relabelSingles(ns.groups, &ns.order)

		groups := make([]Group, 0, len(ns.order))
		for _, key := range ns.order {
			groups = append(groups, newGroup(name, key, ns.groups[key]))
		}
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].Name != groups[j].Name {
				return groups[i].Name < groups[j].Name
			}
			if groups[i].Type != groups[j].Type {
				return groups[i].Type < groups[j].Type
			}
			return groups[i].Label < groups[j].Label
		})
		result = append(result, NamespaceGroup{Namespace: name, Groups: groups})
	}
	return result
}

func labelOf(check api.Check) string {
	if check.Description == check.Endpoint {
		return MultipleLabel
	}
	return check.Description
}

// relabelSingles moves one-member MultipleLabel groups under the member's
// raw description, merging into an existing group of that label if any.
func relabelSingles(groups map[groupKey][]api.Check, order *[]groupKey) {
	kept := (*order)[:0:0]
	for _, key := range *order {
		members := groups[key]
		if key.label != MultipleLabel || len(members) != 1 {
			kept = append(kept, key)
			continue
		}
		target := groupKey{name: key.name, typ: key.typ, label: members[0].Description}
		delete(groups, key)
		if _, exists := groups[target]; !exists {
			kept = append(kept, target)
		}
		groups[target] = append(groups[target], members...)
	}
	*order = kept
}

func newGroup(namespace string, key groupKey, members []api.Check) Group {
	display := key.label
	if display == "" || display == MultipleLabel {
		display = key.name
	}
	return Group{
		Namespace: namespace,
		Name:      display,
		CheckName: key.name,
		Type:      key.typ,
		Label:     key.label,
		Checks:    members,
	}
}

// FindGroup returns the group containing the check with checkKey.
func FindGroup(groups []NamespaceGroup, checkKey string) (Group, bool) {
	for _, ns := range groups {
		for _, g := range ns.Groups {
			for _, c := range g.Checks {
				if c.Key == checkKey {
					return g, true
				}
			}
		}
	}
	return Group{}, false
}
