// Package v1alpha1 contains typed views of the custom resources driven by the
// pod snapshot client. The resources are owned by remote controllers, so the
// client accesses them through the dynamic client and converts them with
// ToUnstructured and FromUnstructured.
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	// PodSnapshotGroupVersion is the group version of the snapshot controller's resources.
	PodSnapshotGroupVersion = schema.GroupVersion{Group: "podsnapshot.gke.io", Version: "v1alpha1"}

	// ClaimGroupVersion is the group version of SandboxClaim.
	ClaimGroupVersion = schema.GroupVersion{Group: "extensions.agents.x-k8s.io", Version: "v1alpha1"}

	// SandboxGroupVersion is the group version of Sandbox.
	SandboxGroupVersion = schema.GroupVersion{Group: "agents.x-k8s.io", Version: "v1alpha1"}
)

var (
	PodSnapshotManualTriggerResource = PodSnapshotGroupVersion.WithResource("podsnapshotmanualtriggers")
	PodSnapshotResource              = PodSnapshotGroupVersion.WithResource("podsnapshots")
	SandboxClaimResource             = ClaimGroupVersion.WithResource("sandboxclaims")
	SandboxResource                  = SandboxGroupVersion.WithResource("sandboxes")
)

const (
	PodSnapshotManualTriggerKind = "PodSnapshotManualTrigger"
	PodSnapshotKind              = "PodSnapshot"
	SandboxClaimKind             = "SandboxClaim"
	SandboxKind                  = "Sandbox"
)

// ListKinds maps every resource above to its list kind. The dynamic fake
// client needs it to serve List and Watch for unregistered types.
func ListKinds() map[schema.GroupVersionResource]string {
	return map[schema.GroupVersionResource]string{
		PodSnapshotManualTriggerResource: PodSnapshotManualTriggerKind + "List",
		PodSnapshotResource:              PodSnapshotKind + "List",
		SandboxClaimResource:             SandboxClaimKind + "List",
		SandboxResource:                  SandboxKind + "List",
	}
}
