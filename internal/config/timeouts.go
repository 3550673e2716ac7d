package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts bounds every individual capability call. There is no global
// deadline for a run.
type Timeouts struct {
	ClusterCreate time.Duration // Creating one cluster including kubeconfig retrieval
	PluginInstall time.Duration // Applying network plugin manifests or charts
	PluginReady   time.Duration // Waiting for the network plugin to report ready
	ToolInstall   time.Duration // Installing a tool into one cluster
	Peering       time.Duration // Establishing one peering
	Delete        time.Duration // Deleting one cluster
	PollInterval  time.Duration // Minimum sleep between readiness polls
	ManifestFetch int           // Attempts for downloading remote manifests
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - TESTBENCH_TIMEOUT_CLUSTER_CREATE (default: 10m)
//   - TESTBENCH_TIMEOUT_PLUGIN_INSTALL (default: 5m)
//   - TESTBENCH_TIMEOUT_PLUGIN_READY (default: 10m)
//   - TESTBENCH_TIMEOUT_TOOL_INSTALL (default: 10m)
//   - TESTBENCH_TIMEOUT_PEERING (default: 5m)
//   - TESTBENCH_TIMEOUT_DELETE (default: 3m)
//   - TESTBENCH_POLL_INTERVAL (default: 5s)
//   - TESTBENCH_MANIFEST_FETCH_ATTEMPTS (default: 3)
func LoadTimeouts() *Timeouts {
	t := &Timeouts{
		ClusterCreate: parseDuration("TESTBENCH_TIMEOUT_CLUSTER_CREATE", 10*time.Minute),
		PluginInstall: parseDuration("TESTBENCH_TIMEOUT_PLUGIN_INSTALL", 5*time.Minute),
		PluginReady:   parseDuration("TESTBENCH_TIMEOUT_PLUGIN_READY", 10*time.Minute),
		ToolInstall:   parseDuration("TESTBENCH_TIMEOUT_TOOL_INSTALL", 10*time.Minute),
		Peering:       parseDuration("TESTBENCH_TIMEOUT_PEERING", 5*time.Minute),
		Delete:        parseDuration("TESTBENCH_TIMEOUT_DELETE", 3*time.Minute),
		PollInterval:  parseDuration("TESTBENCH_POLL_INTERVAL", 5*time.Second),
		ManifestFetch: parseInt("TESTBENCH_MANIFEST_FETCH_ATTEMPTS", 3),
	}

	// Polling must never busy-spin.
	if t.PollInterval < MinPollInterval {
		t.PollInterval = MinPollInterval
	}

	return t
}

// MinPollInterval is the floor applied to every readiness poll loop.
const MinPollInterval = 100 * time.Millisecond

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}
