package orchestration

import (
	"time"

	"github.com/imamik/testbench/internal/provisioning"
)

// Summary is the outcome of one run, one entry per declared entity.
type Summary struct {
	Stage        provisioning.Stage `json:"stage"`
	Duration     time.Duration      `json:"duration"`
	Clusters     []ClusterOutcome   `json:"clusters"`
	ToolInstalls []InstallOutcome   `json:"toolInstalls"`
	Peerings     []PeeringOutcome   `json:"peerings"`
}

// Outcome carries the classification of a failed entity.
type Outcome struct {
	Status string            `json:"status"`
	Kind   provisioning.Kind `json:"kind,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

type ClusterOutcome struct {
	Name     string   `json:"name"`
	Runtime  string   `json:"runtime,omitempty"`
	Artifact string   `json:"artifact,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Outcome
}

type InstallOutcome struct {
	Tool    string `json:"tool"`
	Cluster string `json:"cluster"`
	Version string `json:"version,omitempty"`
	Outcome
}

type PeeringOutcome struct {
	Tool string `json:"tool"`
	A    string `json:"a"`
	B    string `json:"b"`
	Outcome
}

// Failure is one failed or skipped entity.
type Failure struct {
	Entity string
	Kind   provisioning.Kind
	Reason string
}

// NewSummary snapshots state.
func NewSummary(state *provisioning.RunState, duration time.Duration) *Summary {
	s := &Summary{Stage: state.Stage(), Duration: duration}

	for _, c := range state.Clusters() {
		out := ClusterOutcome{
			Name:     c.Name,
			Artifact: c.Artifact,
			Warnings: c.Warnings,
			Outcome:  outcome(string(c.Status), c.Err),
		}
		if c.Handle != nil {
			out.Runtime = c.Handle.Runtime
		}
		s.Clusters = append(s.Clusters, out)
	}
	for _, in := range state.Installs() {
		s.ToolInstalls = append(s.ToolInstalls, InstallOutcome{
			Tool:    in.Key.Tool,
			Cluster: in.Key.Cluster,
			Version: in.Version,
			Outcome: outcome(string(in.Status), in.Err),
		})
	}
	for _, p := range state.Peerings() {
		s.Peerings = append(s.Peerings, PeeringOutcome{
			Tool:    p.Key.Tool,
			A:       p.Key.Pair.A,
			B:       p.Key.Pair.B,
			Outcome: outcome(string(p.Status), p.Err),
		})
	}

	return s
}

func outcome(status string, err error) Outcome {
	o := Outcome{Status: status}
	if err != nil {
		o.Kind = provisioning.KindOf(err)
		o.Reason = err.Error()
	}
	return o
}

// Failures lists every entity that did not succeed, clusters first.
func (s *Summary) Failures() []Failure {
	var out []Failure
	for _, c := range s.Clusters {
		if c.Reason != "" {
			out = append(out, Failure{Entity: c.Name, Kind: c.Kind, Reason: c.Reason})
		}
	}
	for _, in := range s.ToolInstalls {
		if in.Reason != "" {
			out = append(out, Failure{Entity: in.Tool + "/" + in.Cluster, Kind: in.Kind, Reason: in.Reason})
		}
	}
	for _, p := range s.Peerings {
		if p.Reason != "" {
			out = append(out, Failure{Entity: p.Tool + "/" + p.A + "<->" + p.B, Kind: p.Kind, Reason: p.Reason})
		}
	}
	return out
}

// Succeeded reports whether the run reached Done without any failure.
func (s *Summary) Succeeded() bool {
	return s.Stage == provisioning.StageDone && len(s.Failures()) == 0
}
