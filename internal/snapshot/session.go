package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/agentic-sandbox/podsnapshot/internal/sandbox"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	DefaultNamespace          = "default"
	DefaultPodSnapshotTimeout = 180 * time.Second
)

var ErrTemplateNameRequired = errors.New("template name is required")

type Config struct {
	Namespace          string
	TemplateName       string
	Labels             map[string]string
	PodSnapshotTimeout time.Duration

	// SnapshotRef names a trigger whose snapshot restores of this session
	// are bound to.
	SnapshotRef string

	// Topologies overrides DefaultTopologies.
	Topologies []Topology

	// KeepResources makes Close forget the created triggers instead of
	// deleting them.
	KeepResources bool
}

// Session owns the state of one orchestration scope. Open it, defer Close,
// and use it from a single goroutine.
type Session struct {
	state         State
	keepResources bool

	prober       *Prober
	checkpointer *Checkpointer
	restorer     *Restorer
	query        *Query
	cleaner      *Cleaner
}

// Open creates a session, probes the controller once and, when
// cfg.SnapshotRef is set, binds the session to that snapshot. workload may
// be nil for sessions that do not checkpoint; when given it supplies the
// source pod and any attribute missing from cfg.
//
// A controller that is not ready does not fail Open: checkpoint and restore
// report it. A binding that cannot be resolved does.
func Open(ctx context.Context, gw gateway.Gateway, cfg Config, workload sandbox.Workload) (*Session, error) {
	logger := log.FromContext(ctx)

	st := State{
		Namespace:          cfg.Namespace,
		TemplateName:       cfg.TemplateName,
		Labels:             map[string]string{},
		PodSnapshotTimeout: cfg.PodSnapshotTimeout,
	}
	if workload != nil {
		st.PodName = workload.PodName()
		if st.Namespace == "" {
			st.Namespace = workload.Namespace()
		}
		if st.TemplateName == "" {
			st.TemplateName = workload.TemplateName()
		}
		if len(cfg.Labels) == 0 {
			for k, v := range workload.Labels() {
				st.Labels[k] = v
			}
		}
	}
	for k, v := range cfg.Labels {
		st.Labels[k] = v
	}
	if st.Namespace == "" {
		st.Namespace = DefaultNamespace
	}
	if st.PodSnapshotTimeout <= 0 {
		st.PodSnapshotTimeout = DefaultPodSnapshotTimeout
	}
	if st.TemplateName == "" {
		return nil, ErrTemplateNameRequired
	}

	s := &Session{
		state:         st,
		keepResources: cfg.KeepResources,
		prober:        NewProber(gw, cfg.Topologies),
		checkpointer:  NewCheckpointer(gw),
		restorer:      NewRestorer(gw),
		query:         NewQuery(gw),
		cleaner:       NewCleaner(gw),
	}

	s.prober.Probe(ctx, &s.state)

	if cfg.SnapshotRef != "" {
		if err := s.restorer.ResolveAndBind(ctx, &s.state, cfg.SnapshotRef); err != nil {
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
	}

	logger.Info("session opened", "namespace", s.state.Namespace, "pod", s.state.PodName,
		"template", s.state.TemplateName, "controllerReady", s.state.ControllerReady)
	return s, nil
}

func (s *Session) Probe(ctx context.Context) bool {
	return s.prober.Probe(ctx, &s.state)
}

func (s *Session) Checkpoint(ctx context.Context, name string) Result {
	return s.checkpointer.Checkpoint(ctx, &s.state, name)
}

func (s *Session) Restore(ctx context.Context, name string) Result {
	return s.restorer.Restore(ctx, &s.state, name)
}

func (s *Session) ListSnapshots(ctx context.Context, policyName string, readyOnly bool) ([]SnapshotSummary, error) {
	return s.query.ListSnapshots(ctx, &s.state, policyName, readyOnly)
}

func (s *Session) DeleteSnapshots(ctx context.Context, filters Filters) int {
	return s.query.DeleteSnapshots(ctx, &s.state, filters)
}

// Close releases everything the session created. It is safe to call more
// than once and never fails.
func (s *Session) Close(ctx context.Context) {
	logger := log.FromContext(ctx)

	if s.keepResources {
		if len(s.state.CreatedTriggers) > 0 {
			logger.Info("keeping created triggers", "triggers", s.state.CreatedTriggers)
		}
		s.state.CreatedTriggers = nil
		return
	}
	s.cleaner.Cleanup(ctx, &s.state)
}

func (s *Session) ControllerReady() bool {
	return s.state.ControllerReady
}

func (s *Session) CreatedTriggers() []string {
	return append([]string(nil), s.state.CreatedTriggers...)
}

func (s *Session) Binding() *Binding {
	return s.state.Binding
}

func (s *Session) Namespace() string {
	return s.state.Namespace
}
