package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/common/model"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/rileyhilliard/statuspage/internal/adapters"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/format"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// conditionRow is one object in the k8s-conditions output.
type conditionRow struct {
	Name    string `json:"name"`
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// formatter converts raw objects into a printable result.
type formatter func(objects []json.RawMessage) (interface{}, error)

var formatters = map[string]formatter{
	"k8s-conditions":    formatConditions,
	"k8s-node-metrics":  decodeAll(adapters.NodeMetrics),
	"k8s-node-topology": decodeAll(adapters.NodeTopology),
	"k8s-alerts":        formatAlerts,
	"elastic-indices":   decodeAll(adapters.IndexMetrics),
	"elastic-nodes":     decodeAll(adapters.ElasticNodeMetrics),
}

// formatKinds lists the supported kinds in sorted order.
func formatKinds() []string {
	kinds := make([]string, 0, len(formatters))
	for k := range formatters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func formatCommand(stdin io.Reader, out io.Writer, kind, file string) error {
	fn, ok := formatters[kind]
	if !ok {
		return errors.New(errors.ErrInput,
			fmt.Sprintf("Unknown kind '%s'", kind),
			"Supported kinds: "+strings.Join(formatKinds(), ", "))
	}

	data, err := readInput(stdin, file)
	if err != nil {
		return err
	}
	objects, err := adapters.Objects(data)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrInput,
			"Input isn't a JSON array of objects", "Pipe in a list, e.g. kubectl ... -o json | jq .items")
	}
	result, err := fn(objects)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("Input doesn't look like %s objects", kind), "")
	}

	if machineMode {
		return WriteJSONSuccess(out, result)
	}
	renderFormatted(out, result)
	return nil
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrInput, "Couldn't read stdin", "")
		}
		return data, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInput,
			"Couldn't read "+file, "Check the path is correct")
	}
	return data, nil
}

// decodeAll decodes every object as T and hands the slice to adapt.
func decodeAll[T any](adapt func([]T) []adapters.Component) formatter {
	return func(objects []json.RawMessage) (interface{}, error) {
		items := make([]T, 0, len(objects))
		for i, raw := range objects {
			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, item)
		}
		return adapt(items), nil
	}
}

func formatConditions(objects []json.RawMessage) (interface{}, error) {
	rows := make([]conditionRow, 0, len(objects))
	for i, raw := range objects {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		obj := &unstructured.Unstructured{Object: m}
		rows = append(rows, conditionRow{
			Name:    obj.GetName(),
			Ready:   adapters.IsReady(obj),
			Message: adapters.ConditionMessage(obj),
			Error:   adapters.ConditionError(obj),
		})
	}
	return rows, nil
}

func formatAlerts(objects []json.RawMessage) (interface{}, error) {
	metrics := make([]model.Metric, 0, len(objects))
	for i, raw := range objects {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		metrics = append(metrics, adapters.MetricFromMap(m))
	}
	return adapters.Alerts(metrics), nil
}

// renderFormatted prints any formatter result as a table.
func renderFormatted(out io.Writer, result interface{}) {
	var (
		columns []ui.TableColumn
		rows    [][]string
	)
	switch r := result.(type) {
	case []adapters.Component:
		columns = []ui.TableColumn{{Title: "NAME", Width: 16}, {Title: "STATUS", Width: 8}, {Title: "PROPERTIES", Width: 30}}
		for _, c := range r {
			props := make([]string, 0, len(c.Properties))
			for _, p := range c.Properties {
				props = append(props, p.Name+"="+propertyDisplay(p))
			}
			status := orDash(c.Status)
			if c.StatusReason != "" {
				status += " (" + c.StatusReason + ")"
			}
			rows = append(rows, []string{c.Name, status, strings.Join(props, " ")})
		}
	case []conditionRow:
		columns = []ui.TableColumn{{Title: "NAME", Width: 16}, {Title: "READY", Width: 6}, {Title: "NOT TRUE", Width: 20}, {Title: "FALSE", Width: 30}}
		for _, c := range r {
			rows = append(rows, []string{orDash(c.Name), ui.StatusSymbol(c.Ready), orDash(c.Message), orDash(c.Error)})
		}
	case []adapters.Alert:
		columns = []ui.TableColumn{{Title: "ALERT", Width: 20}, {Title: "NAMESPACE", Width: 10}, {Title: "PASS", Width: 5}, {Title: "LABELS", Width: 30}}
		for _, a := range r {
			rows = append(rows, []string{a.Name, orDash(a.Namespace), ui.StatusSymbol(a.Pass), format.Truncate(a.Message, 80)})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, ui.MutedStyle().Render("Nothing to show"))
		return
	}
	fmt.Fprintln(out, ui.RenderSimpleTable(columns, rows))
}

// propertyDisplay humanizes byte values.
func propertyDisplay(p adapters.Property) string {
	switch {
	case p.Value != nil && p.Unit == adapters.UnitBytes:
		return format.Bytes(*p.Value)
	case p.Max != nil && p.Unit == adapters.UnitBytes:
		return "max " + format.Bytes(*p.Max)
	}
	return p.Display()
}
