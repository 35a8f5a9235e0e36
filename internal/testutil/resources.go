package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	snapshotv1alpha1 "github.com/agentic-sandbox/podsnapshot/api/v1alpha1"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
)

var usedResourceNames = make(map[string]bool)

func GetUniqueName(prefix string) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = letters[rand.Intn(len(letters))]
	}
	name := fmt.Sprintf("%s%s", prefix, string(buf))
	if usedResourceNames[name] {
		return GetUniqueName(prefix)
	}
	usedResourceNames[name] = true
	return name
}

// FakeCluster is a gateway backed by client-go fake clients. The fake
// clients ignore field selectors, and watches only see changes made after
// the watch started, so tests script watch streams with ScriptWatch.
type FakeCluster struct {
	Dynamic *dynamicfake.FakeDynamicClient
	Kube    *kubefake.Clientset
	Gateway gateway.Gateway
}

func NewFakeCluster() *FakeCluster {
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), snapshotv1alpha1.ListKinds())
	kube := kubefake.NewSimpleClientset()
	return &FakeCluster{
		Dynamic: dyn,
		Kube:    kube,
		Gateway: gateway.New(dyn, kube),
	}
}

func (c *FakeCluster) add(gvr schema.GroupVersionResource, obj any) *unstructured.Unstructured {
	u, err := snapshotv1alpha1.ToUnstructured(obj)
	Expect(err).NotTo(HaveOccurred())
	err = c.Dynamic.Tracker().Create(gvr, u, u.GetNamespace())
	Expect(err).NotTo(HaveOccurred())
	return u
}

func (c *FakeCluster) AddPod(namespace, name string, phase corev1.PodPhase) {
	_, err := c.Kube.CoreV1().Pods(namespace).Create(
		context.Background(),
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
			Status:     corev1.PodStatus{Phase: phase},
		},
		metav1.CreateOptions{},
	)
	Expect(err).NotTo(HaveOccurred())
}

// AddTrigger adds a processed trigger. snapshotName may be empty to model a
// trigger the controller has not resolved yet.
func (c *FakeCluster) AddTrigger(name, namespace, pod, snapshotName string) {
	trigger := snapshotv1alpha1.NewPodSnapshotManualTrigger(name, namespace, pod)
	if snapshotName != "" {
		trigger.Status.SnapshotCreated = &snapshotv1alpha1.SnapshotReference{Name: snapshotName}
		trigger.Status.Conditions = []metav1.Condition{TriggeredCondition()}
	}
	c.add(snapshotv1alpha1.PodSnapshotManualTriggerResource, trigger)
}

type SnapshotParams struct {
	Name      string
	Namespace string
	UID       string
	Policy    string
	Pod       string
	Trigger   string
	Ready     bool
	CreatedAt time.Time
}

func NewPodSnapshot(p SnapshotParams) *snapshotv1alpha1.PodSnapshot {
	snap := &snapshotv1alpha1.PodSnapshot{
		TypeMeta: metav1.TypeMeta{
			APIVersion: snapshotv1alpha1.PodSnapshotGroupVersion.String(),
			Kind:       snapshotv1alpha1.PodSnapshotKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:              p.Name,
			Namespace:         p.Namespace,
			UID:               uidOrDefault(p),
			CreationTimestamp: metav1.NewTime(p.CreatedAt),
		},
		Spec: snapshotv1alpha1.PodSnapshotSpec{
			PolicyName: p.Policy,
			Source: snapshotv1alpha1.PodSnapshotSource{
				PodName:     p.Pod,
				TriggerName: p.Trigger,
			},
		},
	}
	status := metav1.ConditionFalse
	if p.Ready {
		status = metav1.ConditionTrue
	}
	snap.Status.Conditions = []metav1.Condition{{
		Type:               snapshotv1alpha1.ConditionReady,
		Status:             status,
		Reason:             "Reconciled",
		LastTransitionTime: metav1.NewTime(p.CreatedAt),
	}}
	return snap
}

func uidOrDefault(p SnapshotParams) types.UID {
	if p.UID != "" {
		return types.UID(p.UID)
	}
	return types.UID("uid-" + p.Name)
}

func (c *FakeCluster) AddSnapshot(p SnapshotParams) {
	c.add(snapshotv1alpha1.PodSnapshotResource, NewPodSnapshot(p))
}

func (c *FakeCluster) AddSandbox(name, namespace, podName string, ready bool) {
	c.add(snapshotv1alpha1.SandboxResource, NewSandbox(name, namespace, podName, ready))
}

func NewSandbox(name, namespace, podName string, ready bool) *snapshotv1alpha1.Sandbox {
	sb := &snapshotv1alpha1.Sandbox{
		TypeMeta: metav1.TypeMeta{
			APIVersion: snapshotv1alpha1.SandboxGroupVersion.String(),
			Kind:       snapshotv1alpha1.SandboxKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
	}
	if podName != "" {
		sb.SetAnnotations(map[string]string{snapshotv1alpha1.AnnotationPodName: podName})
	}
	if ready {
		sb.Status.Conditions = []metav1.Condition{ReadyCondition()}
	}
	return sb
}

func (c *FakeCluster) AddClaim(claim *snapshotv1alpha1.SandboxClaim) {
	c.add(snapshotv1alpha1.SandboxClaimResource, claim)
}

// ScriptWatch makes the next watches on resource return the given events.
// When closeStream is true the stream ends after the events, which models a
// server side timeout.
func (c *FakeCluster) ScriptWatch(resource string, closeStream bool, events ...watch.Event) {
	c.Dynamic.PrependWatchReactor(resource, func(action clienttesting.Action) (bool, watch.Interface, error) {
		return true, ScriptedWatcher(closeStream, events...), nil
	})
}

// ScriptedWatcher returns a watcher preloaded with events.
func ScriptedWatcher(closeStream bool, events ...watch.Event) watch.Interface {
	w := watch.NewFakeWithChanSize(len(events), false)
	for _, ev := range events {
		w.Action(ev.Type, ev.Object)
	}
	if closeStream {
		w.Stop()
	}
	return w
}

func TriggeredCondition() metav1.Condition {
	return metav1.Condition{
		Type:               snapshotv1alpha1.ConditionTriggered,
		Status:             metav1.ConditionTrue,
		Reason:             snapshotv1alpha1.ReasonComplete,
		LastTransitionTime: metav1.Now(),
	}
}

func ReadyCondition() metav1.Condition {
	return metav1.Condition{
		Type:               snapshotv1alpha1.ConditionReady,
		Status:             metav1.ConditionTrue,
		Reason:             "Ready",
		LastTransitionTime: metav1.Now(),
	}
}

// MustUnstructured converts a typed object for use in watch events.
func MustUnstructured(obj any) *unstructured.Unstructured {
	u, err := snapshotv1alpha1.ToUnstructured(obj)
	Expect(err).NotTo(HaveOccurred())
	return u
}
