package provisioning

import (
	"errors"
	"sync"

	"github.com/imamik/testbench/internal/config"
)

// Stage is the position of a run in its state machine.
type Stage string

const (
	StageInitializing         Stage = "Initializing"
	StageNetworkReady         Stage = "NetworkReady"
	StageClustersProvisioning Stage = "ClustersProvisioning"
	StageClustersReady        Stage = "ClustersReady"
	StageToolsInstalling      Stage = "ToolsInstalling"
	StagePeering              Stage = "Peering"
	StageDone                 Stage = "Done"
	StagePartiallyFailed      Stage = "PartiallyFailed"
)

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StagePartiallyFailed
}

// ClusterStatus tracks one cluster.
type ClusterStatus string

const (
	ClusterNotStarted ClusterStatus = "NotStarted"
	ClusterCreating   ClusterStatus = "Creating"
	ClusterReady      ClusterStatus = "Ready"
	ClusterFailed     ClusterStatus = "Failed"
)

// InstallStatus tracks one (tool, cluster) installation.
type InstallStatus string

const (
	InstallNotStarted InstallStatus = "NotStarted"
	Installing        InstallStatus = "Installing"
	Installed         InstallStatus = "Installed"
	InstallFailed     InstallStatus = "Failed"
)

// PeeringStatus tracks one (tool, pair) peering.
type PeeringStatus string

const (
	PeeringNotStarted PeeringStatus = "NotStarted"
	PeeringRunning    PeeringStatus = "Peering"
	Peered            PeeringStatus = "Peered"
	PeeringFailed     PeeringStatus = "Failed"
)

// InstallKey identifies a tool installation target.
type InstallKey struct {
	Tool    string
	Cluster string
}

func (k InstallKey) String() string {
	return k.Tool + "/" + k.Cluster
}

// PeeringKey identifies a peering. Pair is always normalized.
type PeeringKey struct {
	Tool string
	Pair config.Peering
}

func (k PeeringKey) String() string {
	return k.Tool + "/" + k.Pair.String()
}

// ClusterState is the recorded outcome of one cluster.
type ClusterState struct {
	Name     string
	Status   ClusterStatus
	Handle   *Handle
	Artifact string
	Warnings []string
	Err      error
}

// InstallState is the recorded outcome of one tool installation.
type InstallState struct {
	Key     InstallKey
	Version string
	Status  InstallStatus
	Err     error
}

// PeeringState is the recorded outcome of one peering.
type PeeringState struct {
	Key    PeeringKey
	Status PeeringStatus
	Err    error
}

// ErrAlreadyStarted is returned when an entity is started twice.
var ErrAlreadyStarted = errors.New("entity was already started")

// RunState records the progress of every entity of a run. Each entity has
// exactly one slot, created by Declare* and moved forward by Begin*,
// Complete*, Fail* and Skip*. All methods are safe for concurrent use.
type RunState struct {
	mu    sync.Mutex
	stage Stage

	clusters     map[string]*ClusterState
	clusterOrder []string

	installs     map[InstallKey]*InstallState
	installOrder []InstallKey

	peerings     map[PeeringKey]*PeeringState
	peeringOrder []PeeringKey
}

// NewRunState creates an empty run state in StageInitializing.
func NewRunState() *RunState {
	return &RunState{
		stage:    StageInitializing,
		clusters: make(map[string]*ClusterState),
		installs: make(map[InstallKey]*InstallState),
		peerings: make(map[PeeringKey]*PeeringState),
	}
}

// Stage returns the current stage.
func (s *RunState) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SetStage moves the run to stage. Terminal stages are final.
func (s *RunState) SetStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.Terminal() {
		return
	}
	s.stage = stage
}

// DeclareCluster creates the NotStarted slot for a cluster.
func (s *RunState) DeclareCluster(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clusters[name]; ok {
		return
	}
	s.clusters[name] = &ClusterState{Name: name, Status: ClusterNotStarted}
	s.clusterOrder = append(s.clusterOrder, name)
}

// BeginCluster moves a cluster to Creating.
func (s *RunState) BeginCluster(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[name]
	if !ok || c.Status != ClusterNotStarted {
		return NewError(KindPreconditionViolation, name, ErrAlreadyStarted)
	}
	c.Status = ClusterCreating
	return nil
}

// CompleteCluster marks a cluster Ready with its handle.
func (s *RunState) CompleteCluster(name string, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clusters[name]; ok {
		c.Status = ClusterReady
		c.Handle = h
	}
}

// FailCluster marks a cluster Failed. A handle may still be recorded when
// the cluster was created but never became ready.
func (s *RunState) FailCluster(name string, h *Handle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clusters[name]; ok {
		c.Status = ClusterFailed
		c.Handle = h
		c.Err = err
	}
}

// SkipCluster records a cluster that was never dispatched.
func (s *RunState) SkipCluster(name, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clusters[name]; ok && c.Status == ClusterNotStarted {
		c.Status = ClusterFailed
		c.Err = NewError(KindSkippedDependency, name, errors.New(reason))
	}
}

// SetArtifact records where the cluster's kubeconfig was written.
func (s *RunState) SetArtifact(name, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clusters[name]; ok {
		c.Artifact = location
	}
}

// AddClusterWarning attaches a non-fatal problem to a cluster.
func (s *RunState) AddClusterWarning(name, warning string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clusters[name]; ok {
		c.Warnings = append(c.Warnings, warning)
	}
}

// ClusterStatus returns the status of a cluster.
func (s *RunState) ClusterStatus(name string) ClusterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clusters[name]; ok {
		return c.Status
	}
	return ClusterNotStarted
}

// ReadyHandle returns the handle of a Ready cluster.
func (s *RunState) ReadyHandle(name string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[name]
	if !ok || c.Status != ClusterReady {
		return nil, false
	}
	return c.Handle, true
}

// ReadyClusters returns the names of Ready clusters in declaration order.
func (s *RunState) ReadyClusters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, name := range s.clusterOrder {
		if s.clusters[name].Status == ClusterReady {
			names = append(names, name)
		}
	}
	return names
}

// DeclareInstall creates the NotStarted slot for a tool installation.
func (s *RunState) DeclareInstall(key InstallKey, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.installs[key]; ok {
		return
	}
	s.installs[key] = &InstallState{Key: key, Version: version, Status: InstallNotStarted}
	s.installOrder = append(s.installOrder, key)
}

// BeginInstall moves an installation to Installing.
func (s *RunState) BeginInstall(key InstallKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.installs[key]
	if !ok || in.Status != InstallNotStarted {
		return NewError(KindPreconditionViolation, key.String(), ErrAlreadyStarted)
	}
	in.Status = Installing
	return nil
}

// CompleteInstall marks an installation Installed.
func (s *RunState) CompleteInstall(key InstallKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.installs[key]; ok {
		in.Status = Installed
	}
}

// FailInstall marks an installation Failed.
func (s *RunState) FailInstall(key InstallKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.installs[key]; ok {
		in.Status = InstallFailed
		in.Err = err
	}
}

// SkipInstall records an installation that was never dispatched.
func (s *RunState) SkipInstall(key InstallKey, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.installs[key]; ok && in.Status == InstallNotStarted {
		in.Status = InstallFailed
		in.Err = NewError(KindSkippedDependency, key.String(), errors.New(reason))
	}
}

// InstallStatus returns the status of an installation.
func (s *RunState) InstallStatus(key InstallKey) InstallStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.installs[key]; ok {
		return in.Status
	}
	return InstallNotStarted
}

// DeclarePeering creates the NotStarted slot for a peering. The pair is
// normalized, so declaring (b,a) after (a,b) is a no-op.
func (s *RunState) DeclarePeering(key PeeringKey) PeeringKey {
	key.Pair = key.Pair.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peerings[key]; ok {
		return key
	}
	s.peerings[key] = &PeeringState{Key: key, Status: PeeringNotStarted}
	s.peeringOrder = append(s.peeringOrder, key)
	return key
}

// BeginPeering moves a peering to Peering.
func (s *RunState) BeginPeering(key PeeringKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peerings[key]
	if !ok || p.Status != PeeringNotStarted {
		return NewError(KindPreconditionViolation, key.String(), ErrAlreadyStarted)
	}
	p.Status = PeeringRunning
	return nil
}

// CompletePeering marks a peering Peered.
func (s *RunState) CompletePeering(key PeeringKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peerings[key]; ok {
		p.Status = Peered
	}
}

// FailPeering marks a peering Failed.
func (s *RunState) FailPeering(key PeeringKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peerings[key]; ok {
		p.Status = PeeringFailed
		p.Err = err
	}
}

// SkipPeering records a peering that was never dispatched.
func (s *RunState) SkipPeering(key PeeringKey, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peerings[key]; ok && p.Status == PeeringNotStarted {
		p.Status = PeeringFailed
		p.Err = NewError(KindSkippedDependency, key.String(), errors.New(reason))
	}
}

// Finalize records every entity still NotStarted as skipped with reason, so
// that each declared entity ends with exactly one terminal outcome.
func (s *RunState) Finalize(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.clusterOrder {
		if c := s.clusters[name]; c.Status == ClusterNotStarted {
			c.Status = ClusterFailed
			c.Err = NewError(KindSkippedDependency, name, errors.New(reason))
		}
	}
	for _, key := range s.installOrder {
		if in := s.installs[key]; in.Status == InstallNotStarted {
			in.Status = InstallFailed
			in.Err = NewError(KindSkippedDependency, key.String(), errors.New(reason))
		}
	}
	for _, key := range s.peeringOrder {
		if p := s.peerings[key]; p.Status == PeeringNotStarted {
			p.Status = PeeringFailed
			p.Err = NewError(KindSkippedDependency, key.String(), errors.New(reason))
		}
	}
}

// SkippedFor counts the entities recorded as skipped with exactly reason.
func (s *RunState) SkippedFor(reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	count := func(err error) {
		var e *Error
		if errors.As(err, &e) && e.Kind == KindSkippedDependency && e.Err != nil && e.Err.Error() == reason {
			n++
		}
	}
	for _, c := range s.clusters {
		count(c.Err)
	}
	for _, in := range s.installs {
		count(in.Err)
	}
	for _, p := range s.peerings {
		count(p.Err)
	}
	return n
}

// Clusters returns a copy of every cluster outcome in declaration order.
func (s *RunState) Clusters() []ClusterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ClusterState, 0, len(s.clusterOrder))
	for _, name := range s.clusterOrder {
		c := *s.clusters[name]
		c.Warnings = append([]string(nil), c.Warnings...)
		out = append(out, c)
	}
	return out
}

// Installs returns a copy of every installation outcome in declaration order.
func (s *RunState) Installs() []InstallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]InstallState, 0, len(s.installOrder))
	for _, key := range s.installOrder {
		out = append(out, *s.installs[key])
	}
	return out
}

// Peerings returns a copy of every peering outcome in declaration order.
func (s *RunState) Peerings() []PeeringState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PeeringState, 0, len(s.peeringOrder))
	for _, key := range s.peeringOrder {
		out = append(out, *s.peerings[key])
	}
	return out
}
