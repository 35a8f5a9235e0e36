package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot/metrics"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

type Checkpointer struct {
	gw gateway.Gateway
}

func NewCheckpointer(gw gateway.Gateway) *Checkpointer {
	return &Checkpointer{gw: gw}
}

// GenerateTriggerName returns a name for callers that do not pick one.
func GenerateTriggerName() string {
	return "snapshot-" + uuid.NewString()[:8]
}

// Checkpoint creates a PodSnapshotManualTrigger for st.PodName and waits
// until the controller reports it complete. The trigger is tracked for
// cleanup as soon as it exists, even if the wait fails.
func (c *Checkpointer) Checkpoint(ctx context.Context, st *State, name string) Result {
	if !st.ControllerReady {
		return failure(ErrControllerNotReady)
	}
	if st.PodName == "" {
		return failure(ErrMissingSourcePod)
	}
	if name == "" {
		name = GenerateTriggerName()
	}

	logger := log.FromContext(ctx).WithValues("trigger", name, "namespace", st.Namespace)
	start := time.Now()

	obj, err := snapshotv1alpha1.ToUnstructured(
		snapshotv1alpha1.NewPodSnapshotManualTrigger(name, st.Namespace, st.PodName))
	if err != nil {
		return failure(err)
	}
	if _, err := c.gw.Create(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, st.Namespace, obj); err != nil {
		observe(metrics.OperationCheckpoint, start, err)
		return failure(fmt.Errorf("failed to create PodSnapshotManualTrigger: %w", err))
	}
	st.CreatedTriggers = append(st.CreatedTriggers, name)
	logger.Info("PodSnapshotManualTrigger created", "pod", st.PodName)

	err = waitForObject(ctx, c.gw, snapshotv1alpha1.PodSnapshotManualTriggerResource, st.Namespace, name,
		st.PodSnapshotTimeout, triggerComplete)
	observe(metrics.OperationCheckpoint, start, err)
	if err != nil {
		logger.Error(err, "PodSnapshotManualTrigger was not processed")
		return failure(fmt.Errorf("failed waiting for PodSnapshotManualTrigger %s: %w", name, err))
	}

	logger.Info("PodSnapshotManualTrigger processed", "duration", time.Since(start))
	return success(fmt.Sprintf("PodSnapshotManualTrigger '%s' created and processed successfully.", name))
}

func triggerComplete(u *unstructured.Unstructured) bool {
	var trigger snapshotv1alpha1.PodSnapshotManualTrigger
	if err := snapshotv1alpha1.FromUnstructured(u, &trigger); err != nil {
		return false
	}
	return trigger.IsComplete()
}

func observe(operation string, start time.Time, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrTimeout):
		result = metrics.ResultTimeout
	default:
		result = metrics.ResultFailure
	}
	metrics.OperationDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
