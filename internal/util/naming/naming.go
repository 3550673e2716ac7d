package naming

import (
	"fmt"
	"path"
)

func K3dContext(cluster string) string {
	return fmt.Sprintf("k3d-%s", cluster)
}

func K3dServerNode(cluster string, index int) string {
	return fmt.Sprintf("k3d-%s-server-%d", cluster, index)
}

func KindContext(cluster string) string {
	return fmt.Sprintf("kind-%s", cluster)
}

func KindControlPlaneNode(cluster string) string {
	return fmt.Sprintf("%s-control-plane", cluster)
}

// Tier is the value of the tier node label for the i-th node of a cluster.
func Tier(index int) string {
	return fmt.Sprintf("worker-%d", index)
}

func KubeconfigFile(cluster string) string {
	return fmt.Sprintf("%s.yaml", cluster)
}

// ArtifactKey is the object key of a kubeconfig uploaded under prefix.
func ArtifactKey(prefix, cluster string) string {
	return path.Join(prefix, "kubeconfigs", KubeconfigFile(cluster))
}

func RegistryProxy(network string) string {
	return fmt.Sprintf("%s-registry-proxy", network)
}

// ClusterID is the identity a cluster announces to cross-cluster tools.
func ClusterID(cluster string) string {
	return cluster
}
