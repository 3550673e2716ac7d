// Package orchestration runs a topology end to end.
//
// The Orchestrator resolves every variant tag before touching anything, then
// runs four phases over a shared RunState:
//  1. network - create the isolation network (and registry proxy)
//  2. clusters - create clusters and install their network plugin, in parallel
//  3. tools - install tools into Ready clusters, in parallel
//  4. peering - peer clusters whose installs succeeded
//
// Failures are contained to the entity they happen on. Only resolution, the
// network phase and a clusters phase without a single Ready cluster end the
// run early. Entities that were never dispatched are recorded as skipped,
// so every declared entity ends with exactly one outcome.
//
// Usage:
//
//	orch := orchestration.New(registry.Builtin(deps), netManager, sink, observer)
//	summary, err := orch.Run(ctx, topology)
package orchestration
