// Package adapters maps raw monitoring objects (Kubernetes nodes and
// conditions, Prometheus alerts, Elasticsearch stats) into the generic
// component display schema.
package adapters

import (
	"encoding/json"
	"fmt"
)

// Component status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Property units.
const (
	UnitMillicores = "millicores"
	UnitBytes      = "bytes"
)

// Component is one displayable entity with named properties.
type Component struct {
	Name         string     `json:"name"`
	Status       string     `json:"status,omitempty"`
	StatusReason string     `json:"statusReason,omitempty"`
	Properties   []Property `json:"properties"`
}

// Property is a measured value, a bounded capacity or a text attribute.
type Property struct {
	Name  string `json:"name"`
	Value *int64 `json:"value,omitempty"`
	Text  string `json:"text,omitempty"`
	Min   *int64 `json:"min,omitempty"`
	Max   *int64 `json:"max,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

func valueProp(name string, v int64, unit string) Property {
	return Property{Name: name, Value: &v, Unit: unit}
}

func textProp(name, text string) Property {
	return Property{Name: name, Text: text}
}

func capacityProp(name string, max int64, unit string) Property {
	return Property{Name: name, Max: &max, Unit: unit}
}

// Property returns the named property of c.
func (c Component) Property(name string) (Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Display renders the property as a single string.
func (p Property) Display() string {
	switch {
	case p.Text != "":
		return p.Text
	case p.Value != nil:
		return withUnit(*p.Value, p.Unit)
	case p.Max != nil:
		return "max " + withUnit(*p.Max, p.Unit)
	}
	return ""
}

func withUnit(v int64, unit string) string {
	if unit == "" {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%d %s", v, unit)
}

// Result is the envelope the templating backend wraps each raw object in.
type Result struct {
	Object json.RawMessage `json:"Object"`
}

// Objects unwraps a list of results, accepting bare objects as well.
func Objects(data []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	out := make([]json.RawMessage, 0, len(raw))
	for i, item := range raw {
		var wrapped Result
		if err := json.Unmarshal(item, &wrapped); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if len(wrapped.Object) > 0 {
			out = append(out, wrapped.Object)
		} else {
			out = append(out, item)
		}
	}
	return out, nil
}
