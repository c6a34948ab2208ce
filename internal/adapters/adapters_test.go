package adapters

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func objFromJSON(t *testing.T, s string) *unstructured.Unstructured {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return &unstructured.Unstructured{Object: m}
}

func TestConditions_Missing(t *testing.T) {
	noStatus := objFromJSON(t, `{"metadata":{"name":"x"}}`)
	assert.Equal(t, NoStatusFound, ConditionMessage(noStatus))
	assert.Equal(t, NoStatusFound, ConditionError(noStatus))
	assert.False(t, IsReady(noStatus))

	noConditions := objFromJSON(t, `{"status":{"phase":"Running"}}`)
	assert.Equal(t, NoConditionsFound, ConditionMessage(noConditions))
	assert.Equal(t, NoConditionsFound, ConditionError(noConditions))
	assert.False(t, IsReady(noConditions))

	assert.Equal(t, NoStatusFound, ConditionMessage(nil))
}

func TestConditions(t *testing.T) {
	obj := objFromJSON(t, `{"status":{"conditions":[
		{"type":"Ready","status":"False","reason":"KubeletNotReady","message":"PLEG is not healthy","lastTransitionTime":"2024-01-02T00:00:00Z"},
		{"type":"MemoryPressure","status":"Unknown"},
		{"type":"DiskPressure","status":"False","reason":"NoDiskPressure","lastTransitionTime":"2024-01-01T00:00:00Z"},
		{"type":"PIDPressure","status":"True"}
	]}}`)

	assert.Equal(t, "Ready MemoryPressure DiskPressure", ConditionMessage(obj))
	assert.Equal(t,
		"2024-01-01T00:00:00Z: DiskPressure is NoDiskPressure, 2024-01-02T00:00:00Z: Ready is KubeletNotReady with PLEG is not healthy",
		ConditionError(obj))
	assert.False(t, IsReady(obj))

	ready := objFromJSON(t, `{"status":{"conditions":[{"type":"Ready","status":"True"},{"type":"Synced","status":"False"}]}}`)
	assert.True(t, IsReady(ready))
	assert.Equal(t, "Synced", ConditionMessage(ready))

	// No Ready condition at all still counts as ready.
	assert.True(t, IsReady(objFromJSON(t, `{"status":{"conditions":[]}}`)))
	assert.Equal(t, "", ConditionMessage(objFromJSON(t, `{"status":{"conditions":[]}}`)))
}

func TestNodeMetrics(t *testing.T) {
	metrics := []NodeMetric{{
		ObjectMeta: metav1.ObjectMeta{Name: "node-a"},
		Usage: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse("250m"),
			corev1.ResourceMemory: resource.MustParse("2Ki"),
		},
	}}

	got := NodeMetrics(metrics)
	require.Len(t, got, 1)
	assert.Equal(t, "node-a", got[0].Name)

	cpu, ok := got[0].Property("cpu")
	require.True(t, ok)
	assert.Equal(t, int64(250), *cpu.Value)

	mem, _ := got[0].Property("memory")
	assert.Equal(t, int64(2048), *mem.Value)
}

func TestNodeMetrics_FromJSON(t *testing.T) {
	var metrics []NodeMetric
	require.NoError(t, json.Unmarshal([]byte(`[{"metadata":{"name":"n1"},"usage":{"cpu":"2","memory":"1Mi"}}]`), &metrics))

	got := NodeMetrics(metrics)
	cpu, _ := got[0].Property("cpu")
	assert.Equal(t, int64(2000), *cpu.Value)
	mem, _ := got[0].Property("memory")
	assert.Equal(t, int64(1<<20), *mem.Value)
}

func testNode(ready corev1.ConditionStatus) corev1.Node {
	return corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: "ip-10-0-0-1",
			Labels: map[string]string{
				LabelInstanceTypeBeta: "m5.large",
				LabelZone:             "us-east-1a",
				LabelAMI:              "ami-123",
			},
		},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:              resource.MustParse("1930m"),
				corev1.ResourceMemory:           resource.MustParse("7Gi"),
				corev1.ResourceEphemeralStorage: resource.MustParse("18Gi"),
			},
			Addresses: []corev1.NodeAddress{
				{Type: corev1.NodeHostName, Address: "host"},
				{Type: corev1.NodeInternalIP, Address: "10.0.0.1"},
			},
			NodeInfo: corev1.NodeSystemInfo{
				MachineID:      "machine",
				SystemUUID:     "uuid",
				BootID:         "boot",
				KernelVersion:  "5.10",
				KubeletVersion: "v1.31.0",
				Architecture:   "amd64",
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: ready, Reason: "KubeletReady"},
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
			},
		},
	}
}

func TestNodeTopology(t *testing.T) {
	got := NodeTopology([]corev1.Node{testNode(corev1.ConditionTrue)})
	require.Len(t, got, 1)
	node := got[0]

	assert.Equal(t, "ip-10-0-0-1", node.Name)
	assert.Equal(t, StatusHealthy, node.Status)
	assert.Empty(t, node.StatusReason)

	cpu, _ := node.Property("cpu")
	assert.Equal(t, int64(1930), *cpu.Max)
	assert.Equal(t, int64(0), *cpu.Min)
	assert.Equal(t, UnitMillicores, cpu.Unit)

	mem, _ := node.Property("memory")
	assert.Equal(t, int64(7<<30), *mem.Max)

	storage, _ := node.Property("ephemeral-storage")
	assert.Equal(t, int64(18<<30), *storage.Max)

	for name, want := range map[string]string{
		"instance-type":  "m5.large",
		"zone":           "us-east-1a",
		"ami":            "ami-123",
		"ip":             "10.0.0.1",
		"kernelVersion":  "5.10",
		"kubeletVersion": "v1.31.0",
		"architecture":   "amd64",
	} {
		p, ok := node.Property(name)
		require.True(t, ok, name)
		assert.Equal(t, want, p.Text, name)
	}

	_, ok := node.Property("externalIp")
	assert.False(t, ok, "no external address")
	for _, hidden := range []string{"machineID", "systemUUID", "bootID"} {
		_, ok := node.Property(hidden)
		assert.False(t, ok, hidden)
	}
}

func TestNodeTopology_Unhealthy(t *testing.T) {
	got := NodeTopology([]corev1.Node{testNode(corev1.ConditionFalse)})
	assert.Equal(t, StatusUnhealthy, got[0].Status)
	assert.Equal(t, "Ready MemoryPressure", got[0].StatusReason)
}

func TestNodeTopology_StableInstanceTypeLabel(t *testing.T) {
	node := testNode(corev1.ConditionTrue)
	delete(node.Labels, LabelInstanceTypeBeta)
	node.Labels[corev1.LabelInstanceTypeStable] = "c6i.xlarge"

	p, _ := NodeTopology([]corev1.Node{node})[0].Property("instance-type")
	assert.Equal(t, "c6i.xlarge", p.Text)
}

func TestAlertName(t *testing.T) {
	tests := []struct {
		labels model.Metric
		want   string
	}{
		{model.Metric{"alertname": "KubeDeploymentReplicasMismatch", "deployment": "api"}, "KubeDeploymentReplicasMismatch/api"},
		{model.Metric{"alertname": "KubePodCrashLooping", "pod": "api-1"}, "KubePodCrashLooping/api-1"},
		{model.Metric{"alertname": "ExcessivePodRestarts", "pod": "api-2"}, "ExcessivePodRestarts/api-2"},
		{model.Metric{"alertname": "KubeDaemonSetRolloutStuck", "daemonset": "fluentd"}, "KubeDaemonSetRolloutStuck/fluentd"},
		{model.Metric{"alertname": "CertManagerInvalidCertificate", "name": "tls"}, "CertManagerInvalidCertificate/tls"},
		{model.Metric{"alertname": "KubeStatefulSetReplicasMismatch", "statefulset": "pg"}, "KubeStatefulSetReplicasMismatch/pg"},
		{model.Metric{"alertname": "NodeFilesystemAlmostFull", "node": "n1"}, "NodeFilesystemAlmostFull/n1"},
		{model.Metric{"alertname": "KubeNodeNotReady", "node": "n2"}, "KubeNodeNotReady/n2"},
		{model.Metric{"alertname": "Watchdog"}, "Watchdog"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, AlertName(tt.labels))
		})
	}
}

func TestAlertLabels(t *testing.T) {
	in := model.Metric{
		"alertname":                     "KubePodNotReady",
		"exported_namespace":            "team-a",
		"exported_instance":             "10.0.0.5:8080",
		"instance":                      "kube-state-metrics:8080",
		"label_app":                     "api",
		"label_apps_kubernetes_io_name": "api",
		"pod":                           "api-1",
	}
	original := in.Clone()

	got := AlertLabels(in)
	assert.Equal(t, model.LabelValue("team-a"), got["namespace"])
	assert.Equal(t, model.LabelValue("10.0.0.5:8080"), got["instance"])
	assert.Equal(t, model.LabelValue("api"), got["app"])
	assert.Equal(t, model.LabelValue("api"), got["apps/kubernetes.io/name"])
	assert.NotContains(t, got, model.LabelName("exported_namespace"))
	assert.NotContains(t, got, model.LabelName("label_app"))
	assert.Equal(t, original, in, "input untouched")

	// Without exported_instance the scrape instance is dropped.
	got = AlertLabels(model.Metric{"alertname": "X", "instance": "ksm", "namespace": "ns"})
	assert.NotContains(t, got, model.LabelName("instance"))
	assert.Equal(t, model.LabelValue("ns"), got["namespace"])
}

func TestAlertLabels_CertManager(t *testing.T) {
	got := AlertLabels(model.Metric{
		"alertname": "CertManagerInvalidCertificate",
		"name":      "tls",
		"condition": "Ready",
		"container": "cm",
		"endpoint":  "metrics",
		"service":   "cm",
		"pod":       "cm-1",
	})
	assert.Equal(t, model.Metric{"alertname": "CertManagerInvalidCertificate", "name": "tls"}, got)
}

func TestAlerts(t *testing.T) {
	alerts := Alerts([]model.Metric{
		{"alertname": "KubePodCrashLooping", "severity": "warning", "namespace": "web", "pod": "api-1", "job": "ksm", "container": "api"},
		{"alertname": "Watchdog", "severity": "none"},
	})
	require.Len(t, alerts, 2)

	a := alerts[0]
	assert.Equal(t, "KubePodCrashLooping/api-1", a.Name)
	assert.Equal(t, "web", a.Namespace)
	assert.False(t, a.Pass)
	assert.Equal(t, map[string]string{"pod": "api-1", "container": "api"}, a.Labels)
	assert.Equal(t, "container=api pod=api-1", a.Message)
	assert.NotEmpty(t, a.ID)

	assert.True(t, alerts[1].Pass)
	assert.Equal(t, "", alerts[1].Message)
	assert.NotEqual(t, alerts[0].ID, alerts[1].ID)
}

func TestMetricFromMap(t *testing.T) {
	m := MetricFromMap(map[string]interface{}{"alertname": "X", "value": 1.5, "missing": nil})
	assert.Equal(t, model.Metric{"alertname": "X", "value": "1.5"}, m)
}

func TestElasticIndexMetrics(t *testing.T) {
	var indices []IndexStats
	require.NoError(t, json.Unmarshal([]byte(`[
		{"index":"logs","health":"green","primaries":{"docs":{"count":10},"store":{"size_in_bytes":2048},"indexing":{"index_failed":0}}},
		{"index":"metrics","health":"yellow","primaries":{"docs":{"count":3},"store":{"size_in_bytes":10},"indexing":{"index_failed":2}}}
	]`), &indices))

	got := IndexMetrics(indices)
	require.Len(t, got, 2)
	assert.Equal(t, "logs", got[0].Name)

	value := func(c Component, name string) int64 {
		p, ok := c.Property(name)
		require.True(t, ok, name)
		return *p.Value
	}
	assert.Equal(t, int64(10), value(got[0], "documents"))
	assert.Equal(t, int64(2048), value(got[0], "size"))
	assert.Equal(t, int64(1), value(got[0], "healthy_indices"))
	assert.Equal(t, int64(0), value(got[1], "healthy_indices"))
	assert.Equal(t, int64(2), value(got[1], "unhealthy_indices"))
}

func TestElasticNodeMetrics(t *testing.T) {
	var nodes []NodeStats
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"es-0","version":"8.11.0","os":{"fs":{"total":100,"available":30}}}]`), &nodes))

	got := ElasticNodeMetrics(nodes)
	require.Len(t, got, 1)
	version, _ := got[0].Property("version")
	assert.Equal(t, "8.11.0", version.Text)
	used, _ := got[0].Property("disk_space_used")
	assert.Equal(t, int64(70), *used.Value)
	free, _ := got[0].Property("disk_space_free")
	assert.Equal(t, int64(30), *free.Value)
}

func TestObjects(t *testing.T) {
	objs, err := Objects([]byte(`[{"Object":{"a":1}},{"b":2}]`))
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.JSONEq(t, `{"a":1}`, string(objs[0]))
	assert.JSONEq(t, `{"b":2}`, string(objs[1]))

	_, err = Objects([]byte(`{"not":"array"}`))
	assert.Error(t, err)
}

func TestPropertyDisplay(t *testing.T) {
	assert.Equal(t, "txt", textProp("x", "txt").Display())
	assert.Equal(t, "5 bytes", valueProp("x", 5, UnitBytes).Display())
	assert.Equal(t, "7", valueProp("x", 7, "").Display())
	assert.Equal(t, "max 2 millicores", capacityProp("x", 2, UnitMillicores).Display())
	assert.Equal(t, "", Property{Name: "x"}.Display())
}
