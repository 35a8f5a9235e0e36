package gateway

import (
	"time"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
)

var _ = Describe("kubeGateway", func() {
	var (
		dynamicClient *dynamicfake.FakeDynamicClient
		kubeClient    *kubefake.Clientset
		gw            Gateway
	)

	BeforeEach(func() {
		dynamicClient = dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
			runtime.NewScheme(), snapshotv1alpha1.ListKinds())
		kubeClient = kubefake.NewSimpleClientset(
			&corev1.Pod{
				ObjectMeta: metav1.ObjectMeta{Namespace: "gps-system", Name: "gke-pod-snapshot-controller-0"},
				Status:     corev1.PodStatus{Phase: corev1.PodRunning},
			},
			&corev1.Pod{
				ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "other"},
			},
		)
		gw = New(dynamicClient, kubeClient)
	})

	It("should create and read back a trigger", func(ctx SpecContext) {
		u, err := snapshotv1alpha1.ToUnstructured(snapshotv1alpha1.NewPodSnapshotManualTrigger("s1", "ns", "p1"))
		Expect(err).NotTo(HaveOccurred())

		_, err = gw.Create(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", u)
		Expect(err).NotTo(HaveOccurred())

		got, err := gw.Get(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "s1")
		Expect(err).NotTo(HaveOccurred())
		var trigger snapshotv1alpha1.PodSnapshotManualTrigger
		Expect(snapshotv1alpha1.FromUnstructured(got, &trigger)).To(Succeed())
		Expect(trigger.Spec.TargetPod).To(Equal("p1"))
		Expect(trigger.Namespace).To(Equal("ns"))

		list, err := gw.List(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns")
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Items).To(HaveLen(1))
	})

	It("should return NotFound when deleting a missing object", func(ctx SpecContext) {
		err := gw.Delete(ctx, snapshotv1alpha1.PodSnapshotResource, "ns", "missing")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("should retry transient read failures", func(ctx SpecContext) {
		u, err := snapshotv1alpha1.ToUnstructured(snapshotv1alpha1.NewPodSnapshotManualTrigger("s1", "ns", "p1"))
		Expect(err).NotTo(HaveOccurred())
		_, err = gw.Create(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", u)
		Expect(err).NotTo(HaveOccurred())

		calls := 0
		dynamicClient.PrependReactor("get", "podsnapshotmanualtriggers",
			func(action clienttesting.Action) (bool, runtime.Object, error) {
				calls++
				if calls == 1 {
					return true, nil, apierrors.NewInternalError(apierrors.NewBadRequest("boom"))
				}
				return false, nil, nil
			})

		_, err = gw.Get(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(2))
	})

	It("should not retry NotFound", func(ctx SpecContext) {
		calls := 0
		dynamicClient.PrependReactor("get", "podsnapshots",
			func(action clienttesting.Action) (bool, runtime.Object, error) {
				calls++
				return false, nil, nil
			})

		_, err := gw.Get(ctx, snapshotv1alpha1.PodSnapshotResource, "ns", "missing")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
		Expect(calls).To(Equal(1))
	})

	It("should pass the field selector to the watch", func(ctx SpecContext) {
		var selector string
		fake := watch.NewFake()
		dynamicClient.PrependWatchReactor("podsnapshotmanualtriggers",
			func(action clienttesting.Action) (bool, watch.Interface, error) {
				selector = action.(clienttesting.WatchAction).GetWatchRestrictions().Fields.String()
				return true, fake, nil
			})

		w, err := gw.Watch(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "metadata.name=s1", 3*time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer w.Stop()
		Expect(selector).To(Equal("metadata.name=s1"))
	})

	It("should list pods of a namespace", func(ctx SpecContext) {
		pods, err := gw.ListPods(ctx, "gps-system")
		Expect(err).NotTo(HaveOccurred())
		Expect(pods).To(HaveLen(1))
		Expect(pods[0].Name).To(Equal("gke-pod-snapshot-controller-0"))
	})
})
