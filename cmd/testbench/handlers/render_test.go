package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/prerequisites"
)

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	s := &orchestration.Summary{
		Stage:    provisioning.StageDone,
		Duration: 95 * time.Second,
		Clusters: []orchestration.ClusterOutcome{
			{Name: "a", Runtime: "k3d", Artifact: "out/kubeconfigs/a.yaml", Warnings: []string{"s3 upload failed"},
				Outcome: orchestration.Outcome{Status: "Ready"}},
			{Name: "b", Outcome: orchestration.Outcome{Status: "Failed", Kind: provisioning.KindProvisioning, Reason: "port in use"}},
		},
		ToolInstalls: []orchestration.InstallOutcome{
			{Tool: "liqo", Cluster: "a", Version: "v1.0.0", Outcome: orchestration.Outcome{Status: "Installed"}},
		},
		Peerings: []orchestration.PeeringOutcome{
			{Tool: "liqo", A: "a", B: "b", Outcome: orchestration.Outcome{Status: "Failed", Kind: provisioning.KindSkippedDependency, Reason: "liqo is not installed in cluster b"}},
		},
	}

	out := renderSummary(s)

	for _, want := range []string{
		"Done", "1m35s", "Clusters", "out/kubeconfigs/a.yaml", "s3 upload failed",
		"liqo/a", "v1.0.0", "liqo/a<->b", "Failures", "ProvisioningError", "port in use",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderSummary_NoTools(t *testing.T) {
	t.Parallel()

	out := renderSummary(&orchestration.Summary{
		Stage:    provisioning.StagePartiallyFailed,
		Clusters: []orchestration.ClusterOutcome{{Name: "a", Outcome: orchestration.Outcome{Status: "Ready"}}},
	})

	assert.Contains(t, out, "PartiallyFailed")
	assert.NotContains(t, out, "Tool installations")
	assert.NotContains(t, out, "Peerings")
	assert.NotContains(t, out, "Failures")
}

func TestPrintSummaryJSON(t *testing.T) {
	output := captureOutput(func() {
		assert.NoError(t, printSummaryJSON(&orchestration.Summary{Stage: provisioning.StageDone}))
	})

	assert.Contains(t, output, `"stage": "Done"`)
}

func TestRenderDoctor(t *testing.T) {
	t.Parallel()

	results := &prerequisites.CheckResults{
		Results: []prerequisites.CheckResult{
			{Tool: prerequisites.Tool{Name: "docker", Required: true}, Found: true, Version: "Docker version 27.1.1"},
			{Tool: prerequisites.Tool{Name: "k3d", Required: true, Description: "Required for clusters with runtime k3d", InstallURL: "https://k3d.io/#installation"}},
			{Tool: prerequisites.Tool{Name: "kubectl", Description: "Useful for inspecting clusters"}},
		},
	}

	out := renderDoctor("2 clusters", results)

	assert.Contains(t, out, "2 clusters")
	assert.Contains(t, out, "Docker version 27.1.1")
	assert.Contains(t, out, "install: https://k3d.io/#installation")
	assert.Contains(t, out, "optional")
}
