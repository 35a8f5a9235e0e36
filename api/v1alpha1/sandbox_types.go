package v1alpha1

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type SandboxTemplateRef struct {
	Name string `json:"name"`
}

// SandboxClaimSpec defines the desired state of SandboxClaim
type SandboxClaimSpec struct {
	SandboxTemplateRef SandboxTemplateRef `json:"sandboxTemplateRef"`
}

// SandboxClaim asks for a new Sandbox to be provisioned from a template,
// optionally bound to a PodSnapshot through annotations.
type SandboxClaim struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec SandboxClaimSpec `json:"spec,omitempty"`
}

// NewSandboxClaim returns a claim for template with the given labels. A nil
// labels map is stored as an empty map.
func NewSandboxClaim(name, namespace, template string, labels map[string]string) *SandboxClaim {
	l := make(map[string]string, len(labels))
	for k, v := range labels {
		l[k] = v
	}
	return &SandboxClaim{
		TypeMeta: metav1.TypeMeta{
			APIVersion: ClaimGroupVersion.String(),
			Kind:       SandboxClaimKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    l,
		},
		Spec: SandboxClaimSpec{
			SandboxTemplateRef: SandboxTemplateRef{Name: template},
		},
	}
}

type SandboxStatus struct {
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// Sandbox is the workload materialised from a SandboxClaim. Only the fields
// read by this client are modelled.
type Sandbox struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Status SandboxStatus `json:"status,omitempty"`
}

func (s *Sandbox) IsReady() bool {
	return isConditionTrue(s.Status.Conditions, ConditionReady)
}

// PodName returns the pod backing the sandbox. Sandboxes without the pod name
// annotation run a pod named after themselves.
func (s *Sandbox) PodName() string {
	if name, ok := s.GetAnnotations()[AnnotationPodName]; ok && name != "" {
		return name
	}
	return s.GetName()
}

func isConditionTrue(conditions []metav1.Condition, conditionType string) bool {
	return meta.IsStatusConditionTrue(conditions, conditionType)
}
