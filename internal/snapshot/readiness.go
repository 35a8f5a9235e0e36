package snapshot

import (
	"context"
	"fmt"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Component is a part of the snapshot subsystem that must have a running pod.
type Component struct {
	Name string
	// PodPattern is a wildcard pattern matched against pod names.
	PodPattern string
}

// Topology is one way of installing the snapshot subsystem.
type Topology struct {
	Name       string
	Namespace  string
	Components []Component
}

// DefaultTopologies are probed in order.
var DefaultTopologies = []Topology{
	{
		Name:      "self-installed",
		Namespace: "gps-system",
		Components: []Component{
			{Name: "controller", PodPattern: "*gke-pod-snapshot-controller*"},
		},
	},
	{
		Name:      "managed",
		Namespace: "gke-managed-pod-snapshots",
		Components: []Component{
			{Name: "agent", PodPattern: "*pod-snapshot-agent*"},
		},
	},
}

type Prober struct {
	gw         gateway.Gateway
	topologies []Topology
}

func NewProber(gw gateway.Gateway, topologies []Topology) *Prober {
	if len(topologies) == 0 {
		topologies = DefaultTopologies
	}
	return &Prober{
		gw:         gw,
		topologies: topologies,
	}
}

// Probe reports whether the snapshot subsystem is running. Once it has
// returned true for st it returns true without querying again. API
// failures count as not ready.
func (p *Prober) Probe(ctx context.Context, st *State) bool {
	logger := log.FromContext(ctx)

	if st.ControllerReady {
		return true
	}

	for _, t := range p.topologies {
		ok, err := p.satisfied(ctx, logger, t)
		if err != nil {
			logger.Error(err, "failed to probe snapshot subsystem", "topology", t.Name, "namespace", t.Namespace)
			continue
		}
		if ok {
			logger.Info("snapshot subsystem is ready", "topology", t.Name, "namespace", t.Namespace)
			st.ControllerReady = true
			return true
		}
	}

	logger.Info("snapshot subsystem is not ready")
	return false
}

func (p *Prober) satisfied(ctx context.Context, logger logr.Logger, t Topology) (bool, error) {
	if len(t.Components) == 0 {
		return false, nil
	}

	pods, err := p.gw.ListPods(ctx, t.Namespace)
	if err != nil {
		return false, fmt.Errorf("failed to list pods: %s: %w", t.Namespace, err)
	}

	running := map[string]bool{}
	for _, pod := range pods {
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		for _, c := range t.Components {
			if wildcard.Match(c.PodPattern, pod.Name) {
				running[c.Name] = true
			}
		}
	}

	for _, c := range t.Components {
		if !running[c.Name] {
			logger.V(1).Info("component is not running", "topology", t.Name, "component", c.Name, "pattern", c.PodPattern)
			return false, nil
		}
	}
	return true, nil
}
