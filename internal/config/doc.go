// Package config defines the topology model consumed by the orchestrator.
//
// A topology file declares the clusters to create, an optional defaults
// block merged into every cluster that omits a field, the shared isolation
// network and the cross-cluster tools to install. [LoadTopology] parses the
// file, merges defaults exactly once and validates the result; the returned
// [Topology] holds fully resolved [ClusterSpec] values and is never
// re-resolved at runtime.
package config
