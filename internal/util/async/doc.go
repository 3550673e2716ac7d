// Package async provides bounded parallel task execution with error
// collection.
//
// [RunParallel] runs every task to completion, even when a sibling fails,
// and returns all errors joined. It backs the per-cluster and per-install
// fan-out of a run.
package async
