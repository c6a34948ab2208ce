package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/common/model"
)

// Alert is a firing Prometheus alert prepared for display.
type Alert struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Namespace string            `json:"namespace,omitempty"`
	Pass      bool              `json:"pass"`
	Labels    map[string]string `json:"labels"`
	Message   string            `json:"message"`
}

// bookkeeping labels are left out of an alert's labels and message.
var bookkeeping = map[model.LabelName]bool{
	"severity":            true,
	"job":                 true,
	model.AlertNameLabel:  true,
	"alertstate":          true,
	model.MetricNameLabel: true,
	"value":               true,
	"namespace":           true,
}

// alertSubjects maps alertname prefixes to the label naming the affected
// object. Checked in order.
var alertSubjects = []struct {
	prefix string
	label  model.LabelName
}{
	{"KubeDeployment", "deployment"},
	{"KubePod", "pod"},
	{"ExcessivePod", "pod"},
	{"KubeDaemonSet", "daemonset"},
	{"KubeStatefulSet", "statefulset"},
	{"KubeNode", "node"},
	{"Node", "node"},
}

const certManagerInvalid = "CertManagerInvalidCertificate"

// AlertName is the alertname qualified by the object it fires for, e.g.
// "KubePodCrashLooping/api-7d9f".
func AlertName(m model.Metric) string {
	name := string(m[model.AlertNameLabel])
	if name == certManagerInvalid {
		return name + "/" + string(m["name"])
	}
	for _, s := range alertSubjects {
		if strings.HasPrefix(name, s.prefix) {
			return name + "/" + string(m[s.label])
		}
	}
	return name
}

// AlertLabels normalizes an alert's label set: exported_namespace fills a
// missing namespace, exported_instance replaces instance, "label_" prefixes
// are dropped and "apps_kubernetes_io_" is restored to "apps/kubernetes.io/".
// The input is not modified.
func AlertLabels(m model.Metric) model.Metric {
	in := m.Clone()
	if in["namespace"] == "" {
		in["namespace"] = in["exported_namespace"]
	}
	in["instance"] = in["exported_instance"]
	delete(in, "exported_namespace")
	delete(in, "exported_instance")

	out := make(model.Metric, len(in))
	for k, v := range in {
		if v == "" {
			continue
		}
		key := strings.Replace(string(k), "label_", "", 1)
		key = strings.Replace(key, "apps_kubernetes_io_", "apps/kubernetes.io/", 1)
		out[model.LabelName(key)] = v
	}

	if out[model.AlertNameLabel] == certManagerInvalid {
		for _, k := range []model.LabelName{"condition", "container", "endpoint", "instance", "service", "pod"} {
			delete(out, k)
		}
	}
	return out
}

// Alerts prepares firing alerts for display. An alert with severity "none"
// is a passing watchdog.
func Alerts(metrics []model.Metric) []Alert {
	alerts := make([]Alert, 0, len(metrics))
	for _, raw := range metrics {
		m := AlertLabels(raw)

		labels := make(map[string]string)
		var keys []string
		for k, v := range m {
			if bookkeeping[k] {
				continue
			}
			labels[string(k)] = string(v)
			keys = append(keys, string(k))
		}
		sort.Strings(keys)

		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + labels[k]
		}

		alerts = append(alerts, Alert{
			ID:        raw.Fingerprint().String(),
			Name:      AlertName(m),
			Namespace: string(m["namespace"]),
			Pass:      m["severity"] == "none",
			Labels:    labels,
			Message:   strings.Join(parts, " "),
		})
	}
	return alerts
}

// MetricFromMap builds a label set from decoded JSON, formatting non-string
// values (e.g. a numeric "value").
func MetricFromMap(raw map[string]interface{}) model.Metric {
	m := make(model.Metric, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			m[model.LabelName(k)] = model.LabelValue(val)
		default:
			m[model.LabelName(k)] = model.LabelValue(fmt.Sprint(val))
		}
	}
	return m
}
