//go:build kind

package kind

import "testing"

// CollectDiagnostics dumps nodes and kube-system pods of cluster.
func (f *Framework) CollectDiagnostics(t *testing.T, cluster string) {
	t.Helper()
	t.Logf("\n=== Diagnostics: %s ===", cluster)

	output, _ := f.Kubectl(cluster, "get", "nodes", "-o", "wide")
	t.Logf("Nodes:\n%s", output)

	output, _ = f.Kubectl(cluster, "-n", "kube-system", "get", "pods", "-o", "wide")
	t.Logf("kube-system:\n%s", output)

	output, _ = f.Kubectl(cluster, "-n", "kube-system", "get", "events", "--sort-by=.lastTimestamp")
	t.Logf("Events:\n%s", output)
}
