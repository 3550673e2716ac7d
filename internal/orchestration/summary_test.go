package orchestration

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
)

func finishedState(t *testing.T) *provisioning.RunState {
	t.Helper()
	s := provisioning.NewRunState()
	s.DeclareCluster("a")
	s.DeclareCluster("b")
	a := provisioning.InstallKey{Tool: "liqo", Cluster: "a"}
	b := provisioning.InstallKey{Tool: "liqo", Cluster: "b"}
	s.DeclareInstall(a, "v1.0.0")
	s.DeclareInstall(b, "")
	peer := s.DeclarePeering(provisioning.PeeringKey{Tool: "liqo", Pair: config.Peering{A: "b", B: "a"}})

	require.NoError(t, s.BeginCluster("a"))
	s.CompleteCluster("a", &provisioning.Handle{Name: "a", Runtime: "k3d"})
	s.SetArtifact("a", "out/a.kubeconfig")
	require.NoError(t, s.BeginCluster("b"))
	s.FailCluster("b", nil, provisioning.NewError(provisioning.KindProvisioning, "b", errors.New("boom")))

	require.NoError(t, s.BeginInstall(a))
	s.CompleteInstall(a)
	s.SkipInstall(b, "cluster b is not ready")
	s.SkipPeering(peer, "liqo is not installed in cluster b")
	s.SetStage(provisioning.StageDone)
	return s
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := NewSummary(finishedState(t), 3*time.Second)

	assert.Equal(t, provisioning.StageDone, s.Stage)
	require.Len(t, s.Clusters, 2)
	assert.Equal(t, ClusterOutcome{
		Name:     "a",
		Runtime:  "k3d",
		Artifact: "out/a.kubeconfig",
		Outcome:  Outcome{Status: string(provisioning.ClusterReady)},
	}, s.Clusters[0])
	assert.Equal(t, provisioning.KindProvisioning, s.Clusters[1].Kind)

	require.Len(t, s.ToolInstalls, 2)
	assert.Equal(t, "v1.0.0", s.ToolInstalls[0].Version)
	assert.Equal(t, provisioning.KindSkippedDependency, s.ToolInstalls[1].Kind)

	require.Len(t, s.Peerings, 1)
	assert.Equal(t, "a", s.Peerings[0].A)
	assert.Equal(t, "b", s.Peerings[0].B)
}

func TestSummary_Failures(t *testing.T) {
	t.Parallel()

	s := NewSummary(finishedState(t), time.Second)
	failures := s.Failures()

	require.Len(t, failures, 3)
	assert.Equal(t, "b", failures[0].Entity)
	assert.Equal(t, "liqo/b", failures[1].Entity)
	assert.Equal(t, "liqo/a<->b", failures[2].Entity)
	assert.False(t, s.Succeeded())
}

func TestSummary_Succeeded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stage provisioning.Stage
		want  bool
	}{
		{"done", provisioning.StageDone, true},
		{"partially failed", provisioning.StagePartiallyFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &Summary{Stage: tt.stage, Clusters: []ClusterOutcome{{Name: "a", Outcome: Outcome{Status: "Ready"}}}}
			assert.Equal(t, tt.want, s.Succeeded())
		})
	}
}

func TestSummary_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewSummary(finishedState(t), time.Second))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"stage":"Done"`)
	assert.Contains(t, string(data), `"kind":"SkippedDependency"`)
	assert.NotContains(t, string(data), `"warnings"`)
}
