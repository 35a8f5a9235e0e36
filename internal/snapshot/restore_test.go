package snapshot

import (
	"errors"
	"time"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/watch"
)

var _ = Describe("Restorer.ResolveAndBind", func() {
	var env *testutil.FakeCluster
	var st *State

	BeforeEach(func() {
		env = testutil.NewFakeCluster()
		st = readyState("ns", "")
	})

	It("should bind to a ready snapshot", func(ctx SpecContext) {
		env.AddTrigger("t1", "ns", "p1", "snap-1")
		env.AddSnapshot(testutil.SnapshotParams{
			Name: "snap-1", Namespace: "ns", UID: "uid-1", Policy: "daily", Pod: "p1", Trigger: "t1",
			Ready: true, CreatedAt: time.Now(),
		})

		err := NewRestorer(env.Gateway).ResolveAndBind(ctx, st, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Binding).To(Equal(&Binding{Trigger: "t1", SnapshotName: "snap-1", SnapshotUID: "uid-1"}))
	})

	It("should fail when the trigger does not exist", func(ctx SpecContext) {
		err := NewRestorer(env.Gateway).ResolveAndBind(ctx, st, "missing")
		Expect(errors.Is(err, ErrUnresolvedBinding)).To(BeTrue())
		Expect(st.Binding).To(BeNil())
	})

	It("should fail when the trigger has not produced a snapshot", func(ctx SpecContext) {
		env.AddTrigger("t1", "ns", "p1", "")

		err := NewRestorer(env.Gateway).ResolveAndBind(ctx, st, "t1")
		Expect(errors.Is(err, ErrUnresolvedBinding)).To(BeTrue())
		Expect(errors.Is(err, errSnapshotNotResolved)).To(BeTrue())
		Expect(st.Binding).To(BeNil())
	})

	It("should fail when the snapshot is not ready", func(ctx SpecContext) {
		env.AddTrigger("t1", "ns", "p1", "snap-1")
		env.AddSnapshot(testutil.SnapshotParams{
			Name: "snap-1", Namespace: "ns", Policy: "daily", Pod: "p1", Trigger: "t1", CreatedAt: time.Now(),
		})

		err := NewRestorer(env.Gateway).ResolveAndBind(ctx, st, "t1")
		Expect(errors.Is(err, ErrUnresolvedBinding)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("not ready"))
		Expect(st.Binding).To(BeNil())
	})
})

var _ = Describe("Restorer.Restore", func() {
	var env *testutil.FakeCluster
	var st *State

	BeforeEach(func() {
		env = testutil.NewFakeCluster()
		st = readyState("ns", "")
		st.TemplateName = "python-runtime"
		st.Labels = map[string]string{"app": "agent"}
	})

	It("should fail without remote calls when the controller is not ready", func(ctx SpecContext) {
		st.ControllerReady = false

		res := NewRestorer(env.Gateway).Restore(ctx, st, "r1")
		Expect(res.ExitCode).To(Equal(1))
		Expect(env.Dynamic.Actions()).To(BeEmpty())
	})

	It("should create a bound claim and report the restored pod", func(ctx SpecContext) {
		st.Binding = &Binding{Trigger: "t1", SnapshotName: "snap-1", SnapshotUID: "uid-1"}
		env.ScriptWatch("sandboxes", false,
			watch.Event{Type: watch.Added, Object: testutil.MustUnstructured(testutil.NewSandbox("r1-from-snapshot", "ns", "", false))},
			watch.Event{Type: watch.Modified, Object: testutil.MustUnstructured(testutil.NewSandbox("r1-from-snapshot", "ns", "r1-pod", true))},
		)

		res := NewRestorer(env.Gateway).Restore(ctx, st, "r1")
		Expect(res.ExitCode).To(Equal(0), res.Stderr)
		Expect(res.Stdout).To(ContainSubstring("'r1-from-snapshot'"))
		Expect(res.Stdout).To(ContainSubstring("'r1-pod'"))

		u, err := env.Gateway.Get(ctx, snapshotv1alpha1.SandboxClaimResource, "ns", "r1-from-snapshot")
		Expect(err).NotTo(HaveOccurred())
		var claim snapshotv1alpha1.SandboxClaim
		Expect(snapshotv1alpha1.FromUnstructured(u, &claim)).To(Succeed())
		Expect(claim.Spec.SandboxTemplateRef.Name).To(Equal("python-runtime"))
		Expect(claim.Labels).To(Equal(map[string]string{"app": "agent"}))
		Expect(claim.Annotations).To(HaveKeyWithValue(snapshotv1alpha1.AnnotationSnapshotName, "snap-1"))
		Expect(claim.Annotations).To(HaveKeyWithValue(snapshotv1alpha1.AnnotationSnapshotUID, "uid-1"))
	})

	It("should not annotate the claim without a binding", func(ctx SpecContext) {
		env.ScriptWatch("sandboxes", false,
			watch.Event{Type: watch.Modified, Object: testutil.MustUnstructured(testutil.NewSandbox("r1-from-snapshot", "ns", "", true))},
		)

		res := NewRestorer(env.Gateway).Restore(ctx, st, "r1")
		Expect(res.ExitCode).To(Equal(0), res.Stderr)
		Expect(res.Stdout).To(ContainSubstring("'r1-from-snapshot'"))

		u, err := env.Gateway.Get(ctx, snapshotv1alpha1.SandboxClaimResource, "ns", "r1-from-snapshot")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.GetAnnotations()).To(BeEmpty())
	})

	It("should fail when the claim already exists", func(ctx SpecContext) {
		env.AddClaim(snapshotv1alpha1.NewSandboxClaim("r1-from-snapshot", "ns", "python-runtime", nil))

		res := NewRestorer(env.Gateway).Restore(ctx, st, "r1")
		Expect(res.ExitCode).To(Equal(1))
		Expect(res.Stderr).To(ContainSubstring("already exists"))
	})

	It("should time out when the stream ends before the sandbox is ready", func(ctx SpecContext) {
		env.ScriptWatch("sandboxes", true,
			watch.Event{Type: watch.Added, Object: testutil.MustUnstructured(testutil.NewSandbox("r1-from-snapshot", "ns", "", false))},
		)

		start := time.Now()
		res := NewRestorer(env.Gateway).Restore(ctx, st, "r1")
		Expect(time.Since(start)).To(BeNumerically("<", st.PodSnapshotTimeout))
		Expect(res.ExitCode).To(Equal(1))
		Expect(res.Stderr).To(ContainSubstring("timed out"))

		_, err := env.Gateway.Get(ctx, snapshotv1alpha1.SandboxClaimResource, "ns", "r1-from-snapshot")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should time out when the sandbox never becomes ready", func(ctx SpecContext) {
		st.PodSnapshotTimeout = 50 * time.Millisecond
		env.ScriptWatch("sandboxes", false,
			watch.Event{Type: watch.Added, Object: testutil.MustUnstructured(testutil.NewSandbox("r1-from-snapshot", "ns", "", false))},
		)

		res := NewRestorer(env.Gateway).Restore(ctx, st, "r1")
		Expect(res.ExitCode).To(Equal(1))
		Expect(res.Stderr).To(ContainSubstring("timed out"))
	})
})
