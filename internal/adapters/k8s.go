package adapters

import (
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// Texts returned when an object carries no condition data.
const (
	NoStatusFound     = "No status found"
	NoConditionsFound = "no conditions found"
)

// condition is the common shape of status.conditions entries across
// resource kinds.
type condition struct {
	Type               string `json:"type"`
	Status             string `json:"status"`
	Reason             string `json:"reason,omitempty"`
	Message            string `json:"message,omitempty"`
	LastTransitionTime string `json:"lastTransitionTime,omitempty"`
}

// conditionsOf returns the status conditions of obj, or the text explaining
// why there are none.
func conditionsOf(obj *unstructured.Unstructured) ([]condition, string) {
	if obj == nil {
		return nil, NoStatusFound
	}
	status, found, err := unstructured.NestedMap(obj.Object, "status")
	if err != nil || !found || status == nil {
		return nil, NoStatusFound
	}
	raw, found, err := unstructured.NestedSlice(status, "conditions")
	if err != nil || !found || raw == nil {
		return nil, NoConditionsFound
	}

	conds := make([]condition, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var c condition
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(m, &c); err != nil {
			continue
		}
		conds = append(conds, c)
	}
	return conds, ""
}

// ConditionMessage lists the types of all conditions that are not True,
// separated by spaces.
func ConditionMessage(obj *unstructured.Unstructured) string {
	conds, missing := conditionsOf(obj)
	if missing != "" {
		return missing
	}
	var types []string
	for _, c := range conds {
		if c.Status != string(metav1.ConditionTrue) {
			types = append(types, c.Type)
		}
	}
	return strings.Join(types, " ")
}

// ConditionError describes every False condition, oldest transition first,
// as "<time>: <type> is <reason>[ with <message>]".
func ConditionError(obj *unstructured.Unstructured) string {
	conds, missing := conditionsOf(obj)
	if missing != "" {
		return missing
	}

	var active []condition
	for _, c := range conds {
		if c.Status == string(metav1.ConditionFalse) {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].LastTransitionTime < active[j].LastTransitionTime
	})

	parts := make([]string, 0, len(active))
	for _, c := range active {
		msg := fmt.Sprintf("%s: %s is %s", c.LastTransitionTime, c.Type, c.Reason)
		if c.Message != "" {
			msg += " with " + c.Message
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, ", ")
}

// IsReady reports whether obj has conditions and no Ready condition other
// than True.
func IsReady(obj *unstructured.Unstructured) bool {
	conds, missing := conditionsOf(obj)
	if missing != "" {
		return false
	}
	for _, c := range conds {
		if c.Type == "Ready" && c.Status != string(metav1.ConditionTrue) {
			return false
		}
	}
	return true
}

// ToUnstructured converts a typed object for the condition helpers.
func ToUnstructured(obj interface{}) (*unstructured.Unstructured, error) {
	m, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: m}, nil
}

// NodeMetric is a metrics.k8s.io NodeMetrics object.
type NodeMetric struct {
	metav1.ObjectMeta `json:"metadata"`
	Usage             corev1.ResourceList `json:"usage"`
}

// NodeMetrics reports each node's cpu usage in millicores and memory usage
// in bytes.
func NodeMetrics(metrics []NodeMetric) []Component {
	components := make([]Component, 0, len(metrics))
	for _, m := range metrics {
		components = append(components, Component{
			Name: m.Name,
			Properties: []Property{
				valueProp("cpu", m.Usage.Cpu().MilliValue(), ""),
				valueProp("memory", m.Usage.Memory().Value(), ""),
			},
		})
	}
	return components
}

// Node labels surfaced by NodeTopology.
const (
	LabelInstanceTypeBeta = "beta.kubernetes.io/instance-type"
	LabelZone             = "topology.kubernetes.io/zone"
	LabelAMI              = "eks.amazonaws.com/nodegroup-image"
)

// NodeTopology describes each node's allocatable capacity, placement,
// addresses and system info, with a healthy or unhealthy status.
func NodeTopology(nodes []corev1.Node) []Component {
	components := make([]Component, 0, len(nodes))
	for i := range nodes {
		components = append(components, nodeComponent(&nodes[i]))
	}
	return components
}

func nodeComponent(node *corev1.Node) Component {
	alloc := node.Status.Allocatable
	cpu := capacityProp("cpu", alloc.Cpu().MilliValue(), UnitMillicores)
	zero := int64(0)
	cpu.Min = &zero

	instanceType := node.Labels[LabelInstanceTypeBeta]
	if instanceType == "" {
		instanceType = node.Labels[corev1.LabelInstanceTypeStable]
	}

	props := []Property{
		cpu,
		capacityProp("memory", alloc.Memory().Value(), UnitBytes),
		capacityProp("ephemeral-storage", alloc.StorageEphemeral().Value(), UnitBytes),
		textProp("instance-type", instanceType),
		textProp("zone", node.Labels[LabelZone]),
		textProp("ami", node.Labels[LabelAMI]),
	}
	if ip := nodeAddress(node, corev1.NodeInternalIP); ip != "" {
		props = append(props, textProp("ip", ip))
	}
	if ip := nodeAddress(node, corev1.NodeExternalIP); ip != "" {
		props = append(props, textProp("externalIp", ip))
	}

	// bootID, machineID and systemUUID identify the host, not its software.
	info := node.Status.NodeInfo
	props = append(props,
		textProp("kernelVersion", info.KernelVersion),
		textProp("osImage", info.OSImage),
		textProp("containerRuntimeVersion", info.ContainerRuntimeVersion),
		textProp("kubeletVersion", info.KubeletVersion),
		textProp("kubeProxyVersion", info.KubeProxyVersion),
		textProp("operatingSystem", info.OperatingSystem),
		textProp("architecture", info.Architecture),
	)

	c := Component{Name: node.Name, Properties: props, Status: StatusHealthy}
	obj, err := ToUnstructured(node)
	if err != nil || !IsReady(obj) {
		c.Status = StatusUnhealthy
		if err != nil {
			c.StatusReason = err.Error()
		} else {
			c.StatusReason = ConditionMessage(obj)
		}
	}
	return c
}

func nodeAddress(node *corev1.Node, typ corev1.NodeAddressType) string {
	for _, a := range node.Status.Addresses {
		if a.Type == typ {
			return a.Address
		}
	}
	return ""
}
