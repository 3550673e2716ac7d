// Package retry provides exponential backoff retry logic for transient
// failures inside a single capability call.
//
// The [Do] function retries an operation with configurable attempts,
// initial delay, and maximum delay. It is used for remote manifest
// downloads; the run pipeline itself never retries.
package retry
