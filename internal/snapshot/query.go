package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

type ReadyState string

const (
	Ready    ReadyState = "Ready"
	NotReady ReadyState = "NotReady"
)

// SnapshotSummary is the flattened view of a PodSnapshot returned by queries.
type SnapshotSummary struct {
	ID          string `json:"snapshotID"`
	TriggerName string `json:"triggerName,omitempty"`
	SourcePod   string `json:"sourcePod,omitempty"`
	UID         string `json:"uid"`
	// CreationTimestamp is RFC 3339 in UTC, so it sorts lexically.
	CreationTimestamp string     `json:"creationTimestamp"`
	ReadyState        ReadyState `json:"readyState"`
	PolicyName        string     `json:"policyName,omitempty"`
}

// Filter keys accepted by DeleteSnapshots.
const (
	FilterSnapshotID        = "snapshot_id"
	FilterPolicyName        = "policy_name"
	FilterTriggerName       = "trigger_name"
	FilterSourcePod         = "source_pod"
	FilterUID               = "uid"
	FilterCreationTimestamp = "creation_timestamp"
	FilterReadyState        = "ready_state"
)

type Filters map[string]string

var ErrPolicyNameRequired = errors.New("policy_name is required for bulk deletion")

func (s *SnapshotSummary) field(key string) (string, bool) {
	switch key {
	case FilterSnapshotID:
		return s.ID, true
	case FilterPolicyName:
		return s.PolicyName, true
	case FilterTriggerName:
		return s.TriggerName, true
	case FilterSourcePod:
		return s.SourcePod, true
	case FilterUID:
		return s.UID, true
	case FilterCreationTimestamp:
		return s.CreationTimestamp, true
	case FilterReadyState:
		return string(s.ReadyState), true
	}
	return "", false
}

// matches requires every filter except policy_name and snapshot_id to equal
// the summary's field. Unknown keys never match.
func (s *SnapshotSummary) matches(filters Filters) bool {
	for k, v := range filters {
		if k == FilterPolicyName || k == FilterSnapshotID {
			continue
		}
		got, ok := s.field(k)
		if !ok || got != v {
			return false
		}
	}
	return true
}

func summarize(snap *snapshotv1alpha1.PodSnapshot) SnapshotSummary {
	state := NotReady
	if snap.IsReady() {
		state = Ready
	}
	created := ""
	if !snap.CreationTimestamp.IsZero() {
		created = snap.CreationTimestamp.UTC().Format(time.RFC3339)
	}
	return SnapshotSummary{
		ID:                snap.GetName(),
		TriggerName:       snap.Spec.Source.TriggerName,
		SourcePod:         snap.Spec.Source.PodName,
		UID:               string(snap.GetUID()),
		CreationTimestamp: created,
		ReadyState:        state,
		PolicyName:        snap.Spec.PolicyName,
	}
}

type Query struct {
	gw gateway.Gateway
}

func NewQuery(gw gateway.Gateway) *Query {
	return &Query{gw: gw}
}

// ListSnapshots returns the snapshots of st.Namespace, most recent first.
// An empty policyName matches every policy. The result is nil when no
// snapshot passes the filters; an error is only returned when listing fails.
func (q *Query) ListSnapshots(ctx context.Context, st *State, policyName string, readyOnly bool) ([]SnapshotSummary, error) {
	logger := log.FromContext(ctx)

	list, err := q.gw.List(ctx, snapshotv1alpha1.PodSnapshotResource, st.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list PodSnapshots: %s: %w", st.Namespace, err)
	}

	var summaries []SnapshotSummary
	for i := range list.Items {
		var snap snapshotv1alpha1.PodSnapshot
		if err := snapshotv1alpha1.FromUnstructured(&list.Items[i], &snap); err != nil {
			logger.Error(err, "skipping malformed PodSnapshot", "name", list.Items[i].GetName())
			continue
		}
		s := summarize(&snap)
		if policyName != "" && s.PolicyName != policyName {
			continue
		}
		if readyOnly && s.ReadyState != Ready {
			continue
		}
		summaries = append(summaries, s)
	}

	slices.SortStableFunc(summaries, func(a, b SnapshotSummary) int {
		return strings.Compare(b.CreationTimestamp, a.CreationTimestamp)
	})

	logger.V(1).Info("listed PodSnapshots", "namespace", st.Namespace, "candidates", len(list.Items),
		"matched", len(summaries), "policy", policyName, "readyOnly", readyOnly)
	return summaries, nil
}

// DeleteSnapshots deletes snapshots and returns how many were removed.
//
// With snapshot_id only that snapshot is deleted; an already missing
// snapshot counts as removed. Otherwise policy_name is required and every
// snapshot of the policy whose fields equal all other filters is deleted. In
// that mode missing snapshots are not counted, and failures are logged
// without stopping the loop.
func (q *Query) DeleteSnapshots(ctx context.Context, st *State, filters Filters) int {
	logger := log.FromContext(ctx).WithValues("namespace", st.Namespace)

	if id := filters[FilterSnapshotID]; id != "" {
		err := q.gw.Delete(ctx, snapshotv1alpha1.PodSnapshotResource, st.Namespace, id)
		switch {
		case err == nil:
			logger.Info("PodSnapshot deleted", "snapshot", id)
			return 1
		case apierrors.IsNotFound(err):
			logger.Info("PodSnapshot already deleted", "snapshot", id)
			return 1
		default:
			logger.Error(err, "failed to delete PodSnapshot", "snapshot", id)
			return 0
		}
	}

	policy := filters[FilterPolicyName]
	if policy == "" {
		logger.Error(ErrPolicyNameRequired, "refusing bulk deletion", "filters", filters)
		return 0
	}

	candidates, err := q.ListSnapshots(ctx, st, policy, false)
	if err != nil {
		logger.Error(err, "failed to list deletion candidates", "policy", policy)
		return 0
	}

	deleted := 0
	for _, s := range candidates {
		if !s.matches(filters) {
			continue
		}
		err := q.gw.Delete(ctx, snapshotv1alpha1.PodSnapshotResource, st.Namespace, s.ID)
		if apierrors.IsNotFound(err) {
			logger.Info("PodSnapshot disappeared before deletion", "snapshot", s.ID)
			continue
		}
		if err != nil {
			logger.Error(err, "failed to delete PodSnapshot", "snapshot", s.ID)
			continue
		}
		logger.Info("PodSnapshot deleted", "snapshot", s.ID, "policy", policy)
		deleted++
	}
	return deleted
}
