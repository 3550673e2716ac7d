//go:build kind

package kind

import (
	"net/netip"
	"strings"
	"testing"
)

// AssertPodCIDRsWithin verifies every node's podCIDR lies inside clusterCIDR.
func (f *Framework) AssertPodCIDRsWithin(t *testing.T, cluster, clusterCIDR string) {
	t.Helper()

	want, err := netip.ParsePrefix(clusterCIDR)
	if err != nil {
		t.Fatalf("bad cluster CIDR %q: %v", clusterCIDR, err)
	}

	output := f.KubectlMust(t, cluster, "get", "nodes", "-o", "jsonpath={.items[*].spec.podCIDR}")
	fields := strings.Fields(output)
	if len(fields) == 0 {
		t.Errorf("%s: no node has a podCIDR", cluster)
	}
	for _, field := range fields {
		got, err := netip.ParsePrefix(field)
		if err != nil {
			t.Errorf("%s: bad podCIDR %q: %v", cluster, field, err)
			continue
		}
		if !want.Contains(got.Addr()) || got.Bits() < want.Bits() {
			t.Errorf("%s: podCIDR %s is outside %s", cluster, got, want)
		}
	}
}

// AssertDaemonSetScheduled verifies a DaemonSet has a pod on every node.
func (f *Framework) AssertDaemonSetScheduled(t *testing.T, cluster, namespace, name string) {
	t.Helper()
	output, err := f.Kubectl(cluster, "-n", namespace, "get", "daemonset", name,
		"-o", "jsonpath={.status.numberReady}/{.status.desiredNumberScheduled}")
	if err != nil {
		t.Errorf("daemonset %s/%s in %s: %v", namespace, name, cluster, err)
		return
	}
	parts := strings.Split(output, "/")
	if len(parts) != 2 || parts[0] == "" || parts[0] == "0" || parts[0] != parts[1] {
		t.Errorf("daemonset %s/%s in %s not ready: %s", namespace, name, cluster, output)
	}
}
