package snapshot

import (
	"context"
	"errors"
	"strings"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot/metrics"
	"github.com/agentic-sandbox/podsnapshot/internal/testutil"
	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	gomock "go.uber.org/mock/gomock"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

func deletions(resource, result string) float64 {
	return promtestutil.ToFloat64(metrics.CleanupDeletions.WithLabelValues(resource, result))
}

var _ = Describe("Cleaner.Cleanup", func() {
	var t reporter
	var ctrl *gomock.Controller
	var gw *gateway.MockGateway

	BeforeEach(func() {
		ctrl = gomock.NewController(t)
		gw = gateway.NewMockGateway(ctrl)
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	It("should process every trigger in order despite failures", func(ctx SpecContext) {
		triggerGR := snapshotv1alpha1.PodSnapshotManualTriggerResource.GroupResource()
		t1 := snapshotv1alpha1.NewPodSnapshotManualTrigger("t1", "ns", "p1")
		t1.Status.SnapshotCreated = &snapshotv1alpha1.SnapshotReference{Name: "snap-1"}

		snapErrors := deletions("podsnapshots", metrics.ResultError)
		triggerDeleted := deletions("podsnapshotmanualtriggers", metrics.ResultDeleted)
		triggerNotFound := deletions("podsnapshotmanualtriggers", metrics.ResultNotFound)

		gomock.InOrder(
			gw.EXPECT().Get(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t1").
				Return(testutil.MustUnstructured(t1), nil),
			gw.EXPECT().Delete(gomock.Any(), snapshotv1alpha1.PodSnapshotResource, "ns", "snap-1").
				Return(apierrors.NewInternalError(errors.New("etcd unavailable"))),
			gw.EXPECT().Delete(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t1").
				Return(nil),
			gw.EXPECT().Get(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t2").
				Return(nil, apierrors.NewNotFound(triggerGR, "t2")),
			gw.EXPECT().Delete(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t2").
				Return(apierrors.NewNotFound(triggerGR, "t2")),
		)

		st := readyState("ns", "p1")
		st.CreatedTriggers = []string{"t1", "t2"}
		Expect(func() { NewCleaner(gw).Cleanup(ctx, st) }).NotTo(Panic())
		Expect(st.CreatedTriggers).To(BeEmpty())

		Expect(deletions("podsnapshots", metrics.ResultError)).To(Equal(snapErrors + 1))
		Expect(deletions("podsnapshotmanualtriggers", metrics.ResultDeleted)).To(Equal(triggerDeleted + 1))
		Expect(deletions("podsnapshotmanualtriggers", metrics.ResultNotFound)).To(Equal(triggerNotFound + 1))
	})

	It("should delete the trigger when its snapshot is not resolved yet", func(ctx SpecContext) {
		pending := snapshotv1alpha1.NewPodSnapshotManualTrigger("t1", "ns", "p1")
		gomock.InOrder(
			gw.EXPECT().Get(gomock.Any(), gomock.Any(), "ns", "t1").Return(testutil.MustUnstructured(pending), nil),
			gw.EXPECT().Delete(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t1").Return(nil),
		)

		st := readyState("ns", "p1")
		st.CreatedTriggers = []string{"t1"}
		NewCleaner(gw).Cleanup(ctx, st)
		Expect(st.CreatedTriggers).To(BeEmpty())
	})

	It("should run with a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		alive := func(ctx context.Context, _ schema.GroupVersionResource, _, _ string) error {
			return ctx.Err()
		}
		gw.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ schema.GroupVersionResource, _, _ string) (*unstructured.Unstructured, error) {
				Expect(ctx.Err()).NotTo(HaveOccurred())
				return nil, apierrors.NewNotFound(schema.GroupResource{}, "t1")
			})
		gw.EXPECT().Delete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(alive)

		st := readyState("ns", "p1")
		st.CreatedTriggers = []string{"t1"}
		deleted := deletions("podsnapshotmanualtriggers", metrics.ResultDeleted)
		NewCleaner(gw).Cleanup(ctx, st)
		Expect(deletions("podsnapshotmanualtriggers", metrics.ResultDeleted)).To(Equal(deleted + 1))
	})

	It("should log a trigger that is already gone without an error", func(ctx SpecContext) {
		var errorLines []string
		logger := funcr.New(func(prefix, args string) {
			if strings.Contains(args, `"error"=`) {
				errorLines = append(errorLines, args)
			}
		}, funcr.Options{})

		triggerGR := snapshotv1alpha1.PodSnapshotManualTriggerResource.GroupResource()
		gomock.InOrder(
			gw.EXPECT().Get(gomock.Any(), gomock.Any(), "ns", "t-gone").
				Return(nil, apierrors.NewNotFound(triggerGR, "t-gone")),
			gw.EXPECT().Delete(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t-gone").
				Return(apierrors.NewNotFound(triggerGR, "t-gone")),
			gw.EXPECT().Get(gomock.Any(), gomock.Any(), "ns", "t-broken").
				Return(nil, apierrors.NewInternalError(errors.New("etcd unavailable"))),
			gw.EXPECT().Delete(gomock.Any(), snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", "t-broken").
				Return(nil),
		)

		st := readyState("ns", "p1")
		st.CreatedTriggers = []string{"t-gone", "t-broken"}
		NewCleaner(gw).Cleanup(log.IntoContext(ctx, logger), st)

		Expect(errorLines).To(HaveLen(1))
		Expect(errorLines[0]).To(ContainSubstring("t-broken"))
	})

	It("should do nothing without tracked triggers", func(ctx SpecContext) {
		st := readyState("ns", "p1")
		NewCleaner(gw).Cleanup(ctx, st)
		Expect(st.CreatedTriggers).To(BeEmpty())
	})
})

var _ = Describe("Cleanup against a fake cluster", func() {
	It("should remove triggers and their snapshots", func(ctx SpecContext) {
		env := testutil.NewFakeCluster()
		env.AddTrigger("t1", "ns", "p1", "snap-1")
		env.AddSnapshot(testutil.SnapshotParams{Name: "snap-1", Namespace: "ns", Policy: "daily", Pod: "p1", Trigger: "t1", Ready: true, CreatedAt: base})
		env.AddTrigger("t2", "ns", "p1", "snap-2")
		env.AddSnapshot(testutil.SnapshotParams{Name: "snap-2", Namespace: "ns", Policy: "daily", Pod: "p1", Trigger: "t2", Ready: true, CreatedAt: base})
		env.AddSnapshot(testutil.SnapshotParams{Name: "snap-other", Namespace: "ns", Policy: "daily", Pod: "p1", Ready: true, CreatedAt: base})

		st := readyState("ns", "p1")
		st.CreatedTriggers = []string{"t1", "t2", "t-gone"}
		NewCleaner(env.Gateway).Cleanup(ctx, st)
		Expect(st.CreatedTriggers).To(BeEmpty())

		for _, name := range []string{"t1", "t2"} {
			_, err := env.Gateway.Get(ctx, snapshotv1alpha1.PodSnapshotManualTriggerResource, "ns", name)
			Expect(apierrors.IsNotFound(err)).To(BeTrue(), name)
		}
		list, err := env.Gateway.List(ctx, snapshotv1alpha1.PodSnapshotResource, "ns")
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Items).To(HaveLen(1))
		Expect(list.Items[0].GetName()).To(Equal("snap-other"))
	})
})
