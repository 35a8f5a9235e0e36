package gateway

import (
	"context"
	"fmt"
	"math"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/util/retry"
)

type kubeGateway struct {
	dynamic dynamic.Interface
	kube    kubernetes.Interface
}

var _ Gateway = &kubeGateway{}

// New returns a Gateway backed by the given clients.
func New(dynamicClient dynamic.Interface, kubeClient kubernetes.Interface) Gateway {
	return &kubeGateway{
		dynamic: dynamicClient,
		kube:    kubeClient,
	}
}

func NewForConfig(cfg *rest.Config) (Gateway, error) {
	dynamicClient, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	kubeClient, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return New(dynamicClient, kubeClient), nil
}

// isTransient reports whether a read may succeed when retried.
func isTransient(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsServiceUnavailable(err)
}

func (g *kubeGateway) Create(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return g.dynamic.Resource(gvr).Namespace(namespace).Create(ctx, obj, metav1.CreateOptions{})
}

func (g *kubeGateway) Get(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error) {
	var obj *unstructured.Unstructured
	err := retry.OnError(retry.DefaultBackoff, isTransient, func() error {
		var err error
		obj, err = g.dynamic.Resource(gvr).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
		return err
	})
	return obj, err
}

func (g *kubeGateway) List(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error) {
	var list *unstructured.UnstructuredList
	err := retry.OnError(retry.DefaultBackoff, isTransient, func() error {
		var err error
		list, err = g.dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
		return err
	})
	return list, err
}

func (g *kubeGateway) Delete(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) error {
	return g.dynamic.Resource(gvr).Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

func (g *kubeGateway) Watch(ctx context.Context, gvr schema.GroupVersionResource, namespace, fieldSelector string, timeout time.Duration) (watch.Interface, error) {
	opts := metav1.ListOptions{FieldSelector: fieldSelector}
	if timeout > 0 {
		seconds := int64(math.Ceil(timeout.Seconds()))
		opts.TimeoutSeconds = &seconds
	}
	return g.dynamic.Resource(gvr).Namespace(namespace).Watch(ctx, opts)
}

func (g *kubeGateway) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	var pods *corev1.PodList
	err := retry.OnError(retry.DefaultBackoff, isTransient, func() error {
		var err error
		pods, err = g.kube.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return pods.Items, nil
}
