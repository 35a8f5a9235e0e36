package snapshot

import (
	"context"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot/metrics"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

type Cleaner struct {
	gw gateway.Gateway
}

func NewCleaner(gw gateway.Gateway) *Cleaner {
	return &Cleaner{gw: gw}
}

// Cleanup deletes every trigger in st.CreatedTriggers together with its
// snapshot. It never fails: errors are logged and the next trigger is
// processed. The tracked list is empty afterwards.
func (c *Cleaner) Cleanup(ctx context.Context, st *State) {
	// Cleanup has to run even when the caller's context is already cancelled.
	ctx = context.WithoutCancel(ctx)

	for _, name := range st.CreatedTriggers {
		c.cleanupTrigger(ctx, st.Namespace, name)
	}
	st.CreatedTriggers = nil
}

func (c *Cleaner) cleanupTrigger(ctx context.Context, namespace, trigger string) {
	logger := log.FromContext(ctx).WithValues("trigger", trigger, "namespace", namespace)

	snapName, err := resolveSnapshotName(ctx, c.gw, namespace, trigger)
	switch {
	case apierrors.IsNotFound(err):
		logger.Info("PodSnapshotManualTrigger already deleted")
	case err != nil:
		logger.Error(err, "failed to resolve PodSnapshot, deleting the trigger only")
	default:
		c.delete(ctx, snapshotv1alpha1.PodSnapshotResource, namespace, snapName)
	}

	c.delete(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, namespace, trigger)
}

func (c *Cleaner) delete(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) {
	logger := log.FromContext(ctx).WithValues("resource", gvr.Resource, "name", name, "namespace", namespace)

	err := c.gw.Delete(ctx, gvr, namespace, name)
	switch {
	case err == nil:
		metrics.CleanupDeletions.WithLabelValues(gvr.Resource, metrics.ResultDeleted).Inc()
		logger.Info("deleted")
	case apierrors.IsNotFound(err):
		metrics.CleanupDeletions.WithLabelValues(gvr.Resource, metrics.ResultNotFound).Inc()
		logger.Info("already deleted")
	default:
		metrics.CleanupDeletions.WithLabelValues(gvr.Resource, metrics.ResultError).Inc()
		logger.Error(err, "failed to delete")
	}
}
