package gateway

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
)

//go:generate mockgen -source=gateway.go -destination=mock_gateway.go -package=gateway

// Gateway is the subset of the Kubernetes API used by the snapshot client.
// Errors are returned as apimachinery API errors so that callers can use
// apierrors.IsNotFound and friends.
type Gateway interface {
	Create(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	Get(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error)
	List(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error)
	Delete(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) error

	// Watch starts a watch limited to objects matching fieldSelector. The
	// server closes the stream after timeout. Callers must Stop the returned
	// watcher.
	Watch(ctx context.Context, gvr schema.GroupVersionResource, namespace, fieldSelector string, timeout time.Duration) (watch.Interface, error)

	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
}
