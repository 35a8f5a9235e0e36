package v1alpha1

const (
	// ConditionTriggered is set on a PodSnapshotManualTrigger once the
	// controller has processed it.
	ConditionTriggered = "Triggered"
	// ConditionReady is set on PodSnapshot and Sandbox objects.
	ConditionReady = "Ready"

	ReasonComplete = "Complete"
)

const (
	AnnotationSnapshotName = "podsnapshot.gke.io/snapshot-name"
	AnnotationSnapshotUID  = "podsnapshot.gke.io/snapshot-uid"
	AnnotationPodName      = "agents.x-k8s.io/pod-name"
)
