// Package provisioning provides the shared contracts and run state used to
// bring up a multi-cluster topology.
//
// The capability contracts live here so that backends never import the
// orchestrator:
//   - ClusterRuntime creates and deletes clusters (runtime/k3d, runtime/kind)
//   - NetworkPlugin installs pod networking into a created cluster (cni/)
//   - Tool installs cross-cluster tooling and peers clusters (tools/liqo)
//
// RunState records per-entity progress. Phases executed by a Pipeline read
// and write it through a Context.
package provisioning
