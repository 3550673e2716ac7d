//go:build kind

package kind

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// WaitForCondition polls until condition returns true or timeout is reached.
func (f *Framework) WaitForCondition(t *testing.T, desc string, timeout time.Duration, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Second)
	}
	t.Fatalf("timeout waiting for %s", desc)
}

// WaitForNodesReady waits until cluster reports want Ready nodes.
func (f *Framework) WaitForNodesReady(t *testing.T, cluster string, want int, timeout time.Duration) {
	t.Helper()
	t.Logf("Waiting for %d nodes in %s...", want, cluster)

	f.WaitForCondition(t, fmt.Sprintf("%d ready nodes in %s", want, cluster), timeout, func() bool {
		output, err := f.Kubectl(cluster, "get", "nodes",
			"-o", `jsonpath={range .items[*]}{.status.conditions[?(@.type=="Ready")].status}{"\n"}{end}`)
		if err != nil {
			return false
		}
		ready := strings.Count(output, "True")
		if ready >= want {
			t.Logf("  %s: %d/%d nodes ready", cluster, ready, want)
			return true
		}
		return false
	})
}

// WaitForPod waits for a pod matching the label to be Running.
func (f *Framework) WaitForPod(t *testing.T, cluster, namespace, label string, timeout time.Duration) {
	t.Helper()

	f.WaitForCondition(t, fmt.Sprintf("pod %s running in %s", label, cluster), timeout, func() bool {
		output, err := f.Kubectl(cluster, "-n", namespace, "get", "pods", "-l", label,
			"-o", "jsonpath={.items[*].status.phase}")
		return err == nil && strings.Contains(output, "Running")
	})
}
