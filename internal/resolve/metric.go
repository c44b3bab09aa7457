package resolve

import (
	"fmt"

	"github.com/stratum-data/stratum/internal/graph"
)

// MetricReference is the lightweight handle returned for a metric() call at
// parse time, before the metric can be looked up.
type MetricReference struct {
	Name    string
	Package string
}

func (m MetricReference) String() string {
	if m.Package != "" {
		return fmt.Sprintf("metric('%s', '%s')", m.Package, m.Name)
	}
	return fmt.Sprintf("metric('%s')", m.Name)
}

// ResolvedMetricReference is the runtime handle: a resolved metric bound to
// the manifest, supporting parent traversal.
type ResolvedMetricReference struct {
	MetricReference
	Metric   *graph.Node
	manifest *graph.Manifest
}

// ParentMetrics returns the metric nodes this metric depends on.
func (m *ResolvedMetricReference) ParentMetrics() []*graph.Node {
	var parents []*graph.Node
	for _, id := range m.Metric.DependsOnNodes {
		if parent, err := m.manifest.Expect(id); err == nil && parent.ResourceType == graph.NodeTypeMetric {
			parents = append(parents, parent)
		}
	}
	return parents
}

func (m *ResolvedMetricReference) String() string { return m.Metric.Name }

// MetricResolver resolves one metric() reference.
type MetricResolver interface {
	Resolve(name, pkg string) (any, error)
}

// NewMetricResolver selects the metric variant for a provider.
func NewMetricResolver(p Provider, r *Resolver) MetricResolver {
	if p.Metric == KindParse {
		return &parseMetricResolver{r}
	}
	return &runtimeMetricResolver{r}
}

// CallMetric applies the metric() call contract: one or two positional
// arguments.
func CallMetric(mr MetricResolver, node *graph.Node, args []string) (any, error) {
	switch len(args) {
	case 1:
		return mr.Resolve(args[0], "")
	case 2:
		return mr.Resolve(args[1], args[0])
	default:
		return nil, &MetricArgsError{Node: node, Args: args}
	}
}

// parseMetricResolver records the reference and returns a lightweight
// handle without any graph lookup.
type parseMetricResolver struct {
	*Resolver
}

func (r *parseMetricResolver) Resolve(name, pkg string) (any, error) {
	r.node.Metrics = append(r.node.Metrics, graph.MetricArgs{Name: name, Package: pkg})
	return MetricReference{Name: name, Package: pkg}, nil
}

// runtimeMetricResolver looks the metric up and returns the
// manifest-bound handle.
type runtimeMetricResolver struct {
	*Resolver
}

func (r *runtimeMetricResolver) Resolve(name, pkg string) (any, error) {
	target, disabled := r.manifest.ResolveMetric(name, pkg, r.currentProject(), r.node.PackageName)
	if target == nil {
		return nil, &TargetNotFoundError{
			Node:          r.node,
			TargetName:    name,
			TargetKind:    "metric",
			TargetPackage: pkg,
			Disabled:      disabled,
		}
	}
	return &ResolvedMetricReference{
		MetricReference: MetricReference{Name: name, Package: pkg},
		Metric:          target,
		manifest:        r.manifest,
	}, nil
}
