// Package k8s provides the Kubernetes operations network plugins and tools
// run against a freshly created cluster: server-side apply of manifests,
// DaemonSet readiness and control-plane address lookup.
package k8s
