package sandbox

import (
	"context"
	"fmt"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Workload exposes the attributes of a running sandbox that snapshot
// sessions need. Pod creation and exec live elsewhere.
type Workload interface {
	PodName() string
	Namespace() string
	TemplateName() string
	Labels() map[string]string
}

type attached struct {
	podName      string
	namespace    string
	templateName string
	labels       map[string]string
}

var _ Workload = &attached{}

func (a *attached) PodName() string           { return a.podName }
func (a *attached) Namespace() string         { return a.namespace }
func (a *attached) TemplateName() string      { return a.templateName }
func (a *attached) Labels() map[string]string { return a.labels }

// Attach resolves an existing Sandbox. The template and labels are taken
// from the SandboxClaim of the same name when it exists; a Sandbox created
// without a claim keeps the given fallback template.
func Attach(ctx context.Context, gw gateway.Gateway, namespace, name, fallbackTemplate string) (Workload, error) {
	logger := log.FromContext(ctx)

	u, err := gw.Get(ctx, snapshotv1alpha1.SandboxResource, namespace, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get Sandbox: %s: %s: %w", namespace, name, err)
	}
	var sb snapshotv1alpha1.Sandbox
	if err := snapshotv1alpha1.FromUnstructured(u, &sb); err != nil {
		return nil, err
	}

	w := &attached{
		podName:      sb.PodName(),
		namespace:    namespace,
		templateName: fallbackTemplate,
		labels:       map[string]string{},
	}

	u, err = gw.Get(ctx, snapshotv1alpha1.SandboxClaimResource, namespace, name)
	if apierrors.IsNotFound(err) {
		logger.Info("SandboxClaim not found, using fallback template", "name", name, "namespace", namespace, "template", fallbackTemplate)
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SandboxClaim: %s: %s: %w", namespace, name, err)
	}
	var claim snapshotv1alpha1.SandboxClaim
	if err := snapshotv1alpha1.FromUnstructured(u, &claim); err != nil {
		return nil, err
	}
	if claim.Spec.SandboxTemplateRef.Name != "" {
		w.templateName = claim.Spec.SandboxTemplateRef.Name
	}
	for k, v := range claim.GetLabels() {
		w.labels[k] = v
	}

	return w, nil
}
