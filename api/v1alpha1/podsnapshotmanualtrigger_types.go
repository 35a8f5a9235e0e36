package v1alpha1

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PodSnapshotManualTriggerSpec defines the desired state of PodSnapshotManualTrigger
type PodSnapshotManualTriggerSpec struct {
	// 'targetPod' specifies the name of the pod to snapshot
	TargetPod string `json:"targetPod"`
}

// SnapshotReference points to the PodSnapshot produced by a trigger.
type SnapshotReference struct {
	Name string `json:"name,omitempty"`
}

// PodSnapshotManualTriggerStatus defines the observed state of PodSnapshotManualTrigger
type PodSnapshotManualTriggerStatus struct {
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// 'snapshotCreated' is filled by the controller once the snapshot exists
	SnapshotCreated *SnapshotReference `json:"snapshotCreated,omitempty"`
}

// PodSnapshotManualTrigger asks the snapshot controller to snapshot a pod.
type PodSnapshotManualTrigger struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PodSnapshotManualTriggerSpec   `json:"spec,omitempty"`
	Status PodSnapshotManualTriggerStatus `json:"status,omitempty"`
}

// NewPodSnapshotManualTrigger returns a trigger for pod in namespace.
func NewPodSnapshotManualTrigger(name, namespace, pod string) *PodSnapshotManualTrigger {
	return &PodSnapshotManualTrigger{
		TypeMeta: metav1.TypeMeta{
			APIVersion: PodSnapshotGroupVersion.String(),
			Kind:       PodSnapshotManualTriggerKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: PodSnapshotManualTriggerSpec{
			TargetPod: pod,
		},
	}
}

// IsComplete returns true when the controller reported the trigger as processed.
func (t *PodSnapshotManualTrigger) IsComplete() bool {
	cond := meta.FindStatusCondition(t.Status.Conditions, ConditionTriggered)
	return cond != nil && cond.Status == metav1.ConditionTrue && cond.Reason == ReasonComplete
}

// SnapshotName returns the name of the produced PodSnapshot, or "" if the
// controller has not recorded it yet.
func (t *PodSnapshotManualTrigger) SnapshotName() string {
	if t.Status.SnapshotCreated == nil {
		return ""
	}
	return t.Status.SnapshotCreated.Name
}
