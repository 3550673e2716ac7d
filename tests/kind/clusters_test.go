//go:build kind

package kind

import (
	"os"
	"sort"
	"testing"
	"time"

	"github.com/imamik/testbench/internal/provisioning"
)

func suiteClusters() []string {
	names := make([]string, 0, len(podCIDRs))
	for name := range podCIDRs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestKindRunSummary(t *testing.T) {
	summary, err := fw.Summary()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Stage != provisioning.StageDone {
		t.Fatalf("run ended in %s, want %s", summary.Stage, provisioning.StageDone)
	}
	if failures := summary.Failures(); len(failures) > 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if len(summary.Clusters) != len(podCIDRs) {
		t.Fatalf("got %d clusters, want %d", len(summary.Clusters), len(podCIDRs))
	}
	for _, c := range summary.Clusters {
		if _, err := os.Stat(c.Artifact); err != nil {
			t.Errorf("%s: kubeconfig %q missing: %v", c.Name, c.Artifact, err)
		}
	}
}

func TestKindClusters(t *testing.T) {
	for _, cluster := range suiteClusters() {
		t.Run(cluster, func(t *testing.T) {
			t.Run("NodesReady", func(t *testing.T) {
				fw.WaitForNodesReady(t, cluster, fw.Nodes(), 3*time.Minute)
			})

			t.Run("PodCIDR", func(t *testing.T) {
				fw.AssertPodCIDRsWithin(t, cluster, podCIDRs[cluster])
			})

			t.Run("Kindnet", func(t *testing.T) {
				fw.AssertDaemonSetScheduled(t, cluster, "kube-system", "kindnet")
				if t.Failed() {
					fw.CollectDiagnostics(t, cluster)
				}
			})

			t.Run("CoreDNS", func(t *testing.T) {
				fw.WaitForPod(t, cluster, "kube-system", "k8s-app=kube-dns", 2*time.Minute)
			})
		})
	}
}
