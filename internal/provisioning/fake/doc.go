// Package fake provides in-memory capability implementations that record
// their calls and fail on demand.
package fake
