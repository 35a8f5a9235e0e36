package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"
	watchtools "k8s.io/client-go/tools/watch"
)

// waitForObject watches the object called name until done returns true for
// an ADDED or MODIFIED event. The wait ends with ErrTimeout when the stream
// closes or the deadline passes first. An ERROR event from the server is
// returned as the API error it carries, and a cancelled ctx is reported as
// such. The watch is stopped on return.
func waitForObject(
	ctx context.Context,
	gw gateway.Gateway,
	gvr schema.GroupVersionResource,
	namespace, name string,
	timeout time.Duration,
	done func(*unstructured.Unstructured) bool,
) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	selector := fields.OneTermEqualSelector("metadata.name", name).String()
	w, err := gw.Watch(waitCtx, gvr, namespace, selector, timeout)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %s: %s: %w", gvr.Resource, namespace, name, err)
	}

	_, err = watchtools.UntilWithoutRetry(waitCtx, w, func(ev watch.Event) (bool, error) {
		switch ev.Type {
		case watch.Error:
			return false, apierrors.FromObject(ev.Object)
		case watch.Added, watch.Modified:
		default:
			return false, nil
		}
		u, ok := ev.Object.(*unstructured.Unstructured)
		if !ok || u.GetName() != name {
			return false, nil
		}
		return done(u), nil
	})
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("stopped waiting for %s %s: %w", gvr.Resource, name, ctx.Err())
	case errors.Is(err, watchtools.ErrWatchClosed), wait.Interrupted(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s %s did not complete within %s", ErrTimeout, gvr.Resource, name, timeout)
	default:
		return fmt.Errorf("failed watching %s: %s: %s: %w", gvr.Resource, namespace, name, err)
	}
}
