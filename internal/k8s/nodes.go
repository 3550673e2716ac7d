package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Control-plane role labels. Older distributions still set "master".
var controlPlaneLabels = []string{
	"node-role.kubernetes.io/control-plane",
	"node-role.kubernetes.io/master",
}

// ControlPlaneInternalIP returns the InternalIP of the first control-plane
// node, which is the API server address reachable from other clusters on
// the shared network.
func (c *client) ControlPlaneInternalIP(ctx context.Context) (string, error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list nodes: %w", err)
	}

	for _, node := range nodes.Items {
		if !isControlPlane(node) {
			continue
		}
		for _, addr := range node.Status.Addresses {
			if addr.Type == corev1.NodeInternalIP && addr.Address != "" {
				return addr.Address, nil
			}
		}
	}

	return "", fmt.Errorf("no control-plane node with an InternalIP found")
}

func isControlPlane(node corev1.Node) bool {
	for _, key := range controlPlaneLabels {
		if _, ok := node.Labels[key]; ok {
			return true
		}
	}
	return false
}
