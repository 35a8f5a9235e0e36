package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type PodSnapshotSource struct {
	PodName     string `json:"podName,omitempty"`
	TriggerName string `json:"triggerName,omitempty"`
}

// PodSnapshotSpec defines the desired state of PodSnapshot
type PodSnapshotSpec struct {
	// 'policyName' is the snapshot policy the snapshot was taken under
	PolicyName string            `json:"policyName,omitempty"`
	Source     PodSnapshotSource `json:"source,omitempty"`
}

// PodSnapshotStatus defines the observed state of PodSnapshot
type PodSnapshotStatus struct {
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// PodSnapshot is the restorable capture produced by the controller. It is
// immutable once created.
type PodSnapshot struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PodSnapshotSpec   `json:"spec,omitempty"`
	Status PodSnapshotStatus `json:"status,omitempty"`
}

// IsReady returns true when the Ready condition is true. The reason is not
// checked.
func (s *PodSnapshot) IsReady() bool {
	return isConditionTrue(s.Status.Conditions, ConditionReady)
}
