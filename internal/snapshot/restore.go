package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot/metrics"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var errSnapshotNotResolved = errors.New("trigger has no snapshot yet")

type Restorer struct {
	gw gateway.Gateway
}

func NewRestorer(gw gateway.Gateway) *Restorer {
	return &Restorer{gw: gw}
}

// ClaimName returns the name of the SandboxClaim created by Restore.
func ClaimName(name string) string {
	return name + "-from-snapshot"
}

// ResolveAndBind resolves the trigger called reference to its snapshot and
// binds st to it. Every failure wraps ErrUnresolvedBinding; callers must not
// provision a workload when it fails.
func (r *Restorer) ResolveAndBind(ctx context.Context, st *State, reference string) error {
	logger := log.FromContext(ctx)

	snap, err := resolveSnapshot(ctx, r.gw, st.Namespace, reference)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnresolvedBinding, reference, err)
	}
	if !snap.IsReady() {
		return fmt.Errorf("%w: %s: PodSnapshot %s is not ready", ErrUnresolvedBinding, reference, snap.GetName())
	}

	st.Binding = &Binding{
		Trigger:      reference,
		SnapshotName: snap.GetName(),
		SnapshotUID:  string(snap.GetUID()),
	}
	logger.Info("bound to snapshot", "trigger", reference, "snapshot", snap.GetName(), "uid", snap.GetUID())
	return nil
}

// Restore creates a SandboxClaim from the session template and waits for the
// resulting Sandbox to become ready. The claim is not tracked for cleanup.
func (r *Restorer) Restore(ctx context.Context, st *State, name string) Result {
	if !st.ControllerReady {
		return failure(ErrControllerNotReady)
	}

	claimName := ClaimName(name)
	logger := log.FromContext(ctx).WithValues("claim", claimName, "namespace", st.Namespace)
	start := time.Now()

	claim := snapshotv1alpha1.NewSandboxClaim(claimName, st.Namespace, st.TemplateName, st.Labels)
	if st.Binding != nil {
		claim.SetAnnotations(map[string]string{
			snapshotv1alpha1.AnnotationSnapshotName: st.Binding.SnapshotName,
			snapshotv1alpha1.AnnotationSnapshotUID:  st.Binding.SnapshotUID,
		})
	}
	obj, err := snapshotv1alpha1.ToUnstructured(claim)
	if err != nil {
		return failure(err)
	}
	if _, err := r.gw.Create(ctx, snapshotv1alpha1.SandboxClaimResource, st.Namespace, obj); err != nil {
		observe(metrics.OperationRestore, start, err)
		return failure(fmt.Errorf("failed to create SandboxClaim: %w", err))
	}
	logger.Info("SandboxClaim created", "template", st.TemplateName, "binding", st.Binding)

	var podName string
	err = waitForObject(ctx, r.gw, snapshotv1alpha1.SandboxResource, st.Namespace, claimName,
		st.PodSnapshotTimeout, func(u *unstructured.Unstructured) bool {
			var sb snapshotv1alpha1.Sandbox
			if err := snapshotv1alpha1.FromUnstructured(u, &sb); err != nil {
				return false
			}
			podName = sb.PodName()
			return sb.IsReady()
		})
	observe(metrics.OperationRestore, start, err)
	if err != nil {
		logger.Error(err, "restored Sandbox did not become ready")
		return failure(fmt.Errorf("failed waiting for Sandbox %s: %w", claimName, err))
	}

	logger.Info("restored Sandbox is ready", "pod", podName, "duration", time.Since(start))
	return success(fmt.Sprintf("SandboxClaim '%s' created successfully; restored pod '%s' is ready.", claimName, podName))
}

// resolveSnapshotName reads the trigger status for the snapshot name.
func resolveSnapshotName(ctx context.Context, gw gateway.Gateway, namespace, trigger string) (string, error) {
	u, err := gw.Get(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, namespace, trigger)
	if err != nil {
		return "", fmt.Errorf("failed to get PodSnapshotManualTrigger: %s: %s: %w", namespace, trigger, err)
	}
	var t snapshotv1alpha1.PodSnapshotManualTrigger
	if err := snapshotv1alpha1.FromUnstructured(u, &t); err != nil {
		return "", err
	}
	name := t.SnapshotName()
	if name == "" {
		return "", fmt.Errorf("%w: %s: %s", errSnapshotNotResolved, namespace, trigger)
	}
	return name, nil
}

func resolveSnapshot(ctx context.Context, gw gateway.Gateway, namespace, trigger string) (*snapshotv1alpha1.PodSnapshot, error) {
	name, err := resolveSnapshotName(ctx, gw, namespace, trigger)
	if err != nil {
		return nil, err
	}
	u, err := gw.Get(ctx, snapshotv1alpha1.PodSnapshotResource, namespace, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get PodSnapshot: %s: %s: %w", namespace, name, err)
	}
	var snap snapshotv1alpha1.PodSnapshot
	if err := snapshotv1alpha1.FromUnstructured(u, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
