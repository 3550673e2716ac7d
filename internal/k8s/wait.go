package k8s

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DaemonSetReady reports whether a DaemonSet has rolled out on every node.
func (c *client) DaemonSetReady(ctx context.Context, namespace, name string) (bool, error) {
	ds, err := c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get daemonset %s/%s: %w", namespace, name, err)
	}

	return isDaemonSetReady(ds), nil
}

// WaitForDaemonSet waits for a daemonset to become ready. Transient API
// errors are treated as "not ready yet".
func (c *client) WaitForDaemonSet(ctx context.Context, namespace, name string, interval, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		ready, err := c.DaemonSetReady(ctx, namespace, name)
		if err != nil {
			return false, nil
		}
		return ready, nil
	})
	if err != nil {
		return fmt.Errorf("daemonset %s/%s not ready after %v: %w", namespace, name, timeout, err)
	}
	return nil
}

// isDaemonSetReady checks if a daemonset is ready.
func isDaemonSetReady(daemonSet *appsv1.DaemonSet) bool {
	return daemonSet.Status.DesiredNumberScheduled > 0 &&
		daemonSet.Status.NumberReady == daemonSet.Status.DesiredNumberScheduled &&
		daemonSet.Status.NumberAvailable == daemonSet.Status.DesiredNumberScheduled
}
