package orchestration_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
)

func clusterByName(s *orchestration.Summary, name string) orchestration.ClusterOutcome {
	for _, c := range s.Clusters {
		if c.Name == name {
			return c
		}
	}
	Fail("no cluster " + name + " in summary")
	return orchestration.ClusterOutcome{}
}

func installByCluster(s *orchestration.Summary, name string) orchestration.InstallOutcome {
	for _, in := range s.ToolInstalls {
		if in.Cluster == name {
			return in
		}
	}
	Fail("no install for " + name + " in summary")
	return orchestration.InstallOutcome{}
}

var _ = Describe("Orchestrator", func() {
	var (
		b   *bench
		ctx context.Context
	)

	BeforeEach(func() {
		b = newBench()
		ctx = context.Background()
	})

	Describe("two calico clusters peered with liqo", func() {
		It("brings everything up with exactly one peering", func() {
			topo := topology([]string{"a", "b"}, []string{"a", "b"}, [2]string{"a", "b"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage).To(Equal(provisioning.StageDone))
			Expect(summary.Succeeded()).To(BeTrue())
			Expect(summary.Clusters).To(HaveLen(2))
			for _, c := range summary.Clusters {
				Expect(c.Status).To(Equal(string(provisioning.ClusterReady)))
				Expect(c.Artifact).To(Equal("mem://" + c.Name))
			}
			for _, in := range summary.ToolInstalls {
				Expect(in.Status).To(Equal(string(provisioning.Installed)))
			}
			Expect(summary.Peerings).To(HaveLen(1))
			Expect(summary.Peerings[0].Status).To(Equal(string(provisioning.Peered)))
			Expect(b.tool.Peers()).To(Equal([][2]string{{"a", "b"}}))
		})

		It("installs the plugin once per created cluster", func() {
			topo := topology([]string{"a", "b"}, nil)

			_, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(b.plugin.Installs()).To(ConsistOf("a", "b"))
			Expect(b.plugin.Waits()).To(ConsistOf("a", "b"))
			Expect(b.runtime.Network("a").Name).To(Equal(config.DefaultNetworkName))
		})
	})

	Describe("symmetric peerings", func() {
		It("peers (a,b) and (b,a) once", func() {
			topo := topology([]string{"a", "b"}, []string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(b.tool.Peers()).To(HaveLen(1))
			Expect(summary.Peerings).To(HaveLen(1))
		})
	})

	Describe("one of three clusters fails to create", func() {
		var summary *orchestration.Summary

		BeforeEach(func() {
			b.runtime.CreateErrors["b"] = errors.New("port 6443 already allocated")
			topo := topology([]string{"a", "b", "c"}, []string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"a", "c"})

			var err error
			summary, err = b.orch.Run(ctx, topo)
			Expect(err).NotTo(HaveOccurred())
		})

		It("still reaches Done", func() {
			Expect(summary.Stage).To(Equal(provisioning.StageDone))
			Expect(summary.Succeeded()).To(BeFalse())
		})

		It("keeps the failure on the failing cluster", func() {
			Expect(clusterByName(summary, "a").Status).To(Equal(string(provisioning.ClusterReady)))
			Expect(clusterByName(summary, "c").Status).To(Equal(string(provisioning.ClusterReady)))

			failed := clusterByName(summary, "b")
			Expect(failed.Status).To(Equal(string(provisioning.ClusterFailed)))
			Expect(failed.Kind).To(Equal(provisioning.KindProvisioning))
			Expect(failed.Reason).To(ContainSubstring("port 6443 already allocated"))
		})

		It("skips the install on the failed cluster without dispatching it", func() {
			in := installByCluster(summary, "b")
			Expect(in.Status).To(Equal(string(provisioning.InstallFailed)))
			Expect(in.Kind).To(Equal(provisioning.KindSkippedDependency))
			Expect(b.tool.Installs()).To(ConsistOf(
				HaveField("Cluster", "a"),
				HaveField("Cluster", "c"),
			))
		})

		It("skips the peering involving the failed cluster", func() {
			Expect(b.tool.Peers()).To(Equal([][2]string{{"a", "c"}}))
			Expect(summary.Peerings).To(HaveLen(2))
			Expect(summary.Peerings[0].Kind).To(Equal(provisioning.KindSkippedDependency))
			Expect(summary.Peerings[1].Status).To(Equal(string(provisioning.Peered)))
		})

		It("never installs a plugin into the failed cluster", func() {
			Expect(b.plugin.Installs()).NotTo(ContainElement("b"))
		})
	})

	Describe("every cluster fails", func() {
		It("ends PartiallyFailed without dispatching tools", func() {
			for _, name := range []string{"a", "b"} {
				b.runtime.CreateErrors[name] = errors.New("docker daemon unavailable")
			}
			topo := topology([]string{"a", "b"}, []string{"a", "b"}, [2]string{"a", "b"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).To(HaveOccurred())
			Expect(summary.Stage).To(Equal(provisioning.StagePartiallyFailed))
			Expect(b.tool.Installs()).To(BeEmpty())
			Expect(b.tool.Peers()).To(BeEmpty())
			for _, in := range summary.ToolInstalls {
				Expect(in.Kind).To(Equal(provisioning.KindSkippedDependency))
			}
			Expect(summary.Peerings[0].Kind).To(Equal(provisioning.KindSkippedDependency))
		})
	})

	Describe("plugin failures", func() {
		It("distinguishes install failures from readiness timeouts", func() {
			b.runtime.PluginErrors["a"] = errors.New("apply failed")
			b.plugin.ReadyErr = errors.New("timed out waiting for calico-node")
			topo := topology([]string{"a", "b"}, nil)

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).To(HaveOccurred())
			Expect(clusterByName(summary, "a").Kind).To(Equal(provisioning.KindPluginInstall))
			Expect(clusterByName(summary, "b").Kind).To(Equal(provisioning.KindReadinessTimeout))
		})

		It("keeps the created cluster and its artifact", func() {
			topo := topology([]string{"a", "b"}, nil)
			b.runtime.PluginErrors["b"] = errors.New("manifest not found")

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(clusterByName(summary, "b").Status).To(Equal(string(provisioning.ClusterFailed)))
			Expect(clusterByName(summary, "b").Artifact).To(Equal("mem://b"))
			Expect(b.runtime.Deleted()).To(BeEmpty())
		})
	})

	Describe("tool failures", func() {
		It("contains install and peering failures to their entity", func() {
			b.tool.InstallErrors["c"] = errors.New("liqoctl exited 1")
			b.tool.PeerErrors["a<->b"] = errors.New("gateway unreachable")
			topo := topology([]string{"a", "b", "c"}, []string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"b", "c"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage).To(Equal(provisioning.StageDone))
			Expect(installByCluster(summary, "c").Kind).To(Equal(provisioning.KindToolInstall))
			Expect(summary.Peerings[0].Kind).To(Equal(provisioning.KindPeering))
			Expect(summary.Peerings[1].Kind).To(Equal(provisioning.KindSkippedDependency))
			Expect(b.tool.Peers()).To(HaveLen(1))
		})

		It("skips peerings with a side the tool was never installed on", func() {
			topo := topology([]string{"a", "b"}, []string{"a"}, [2]string{"a", "b"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(b.tool.Peers()).To(BeEmpty())
			Expect(summary.Peerings[0].Reason).To(ContainSubstring("not installed in cluster b"))
		})
	})

	Describe("network failure", func() {
		It("creates no cluster and records every entity", func() {
			b.network.err = errors.New("docker: permission denied")
			topo := topology([]string{"a", "b"}, []string{"a"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).To(HaveOccurred())
			Expect(provisioning.KindOf(err)).To(Equal(provisioning.KindNetwork))
			Expect(summary.Stage).To(Equal(provisioning.StagePartiallyFailed))
			Expect(b.runtime.Created()).To(BeEmpty())
			Expect(summary.Clusters).To(HaveLen(2))
			for _, c := range summary.Clusters {
				Expect(c.Kind).To(Equal(provisioning.KindSkippedDependency))
				Expect(c.Reason).To(ContainSubstring("isolation network unavailable"))
			}
			Expect(summary.ToolInstalls).To(HaveLen(1))
		})
	})

	Describe("resolution", func() {
		It("fails on an unknown plugin before any side effect", func() {
			f := &config.File{Clusters: []config.ClusterConfig{
				{Name: "a", ClusterDefaults: config.ClusterDefaults{Runtime: "k3d", CNI: "weave"}},
			}}
			topo, err := config.Resolve(f)
			Expect(err).NotTo(HaveOccurred())

			summary, err := b.orch.Run(ctx, topo)

			Expect(summary).To(BeNil())
			Expect(provisioning.KindOf(err)).To(Equal(provisioning.KindUnknownVariant))
			Expect(b.network.ensured).To(BeEmpty())
			Expect(b.runtime.Created()).To(BeEmpty())
		})

		It("rejects a plugin the runtime cannot host", func() {
			f := &config.File{Clusters: []config.ClusterConfig{
				{Name: "a", ClusterDefaults: config.ClusterDefaults{Runtime: "k3d", CNI: "calico"}},
			}}
			b.runtime.Plugins = []string{"flannel"}
			topo, err := config.Resolve(f)
			Expect(err).NotTo(HaveOccurred())

			_, err = b.orch.Run(ctx, topo)

			Expect(provisioning.KindOf(err)).To(Equal(provisioning.KindPreconditionViolation))
			Expect(b.network.ensured).To(BeEmpty())
		})
	})

	Describe("concurrency", func() {
		It("bounds cluster creation by the worker limit", func() {
			var inFlight, peak int32
			b.runtime.OnCreate = func(context.Context, config.ClusterSpec) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
			}
			b.orch.Workers = 2
			topo := topology([]string{"a", "b", "c", "d", "e"}, nil)

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Clusters).To(HaveLen(5))
			Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 2))
		})
	})

	Describe("cancellation", func() {
		It("finishes in-flight creates and dispatches nothing further", func() {
			runCtx, cancel := context.WithCancel(ctx)
			var once sync.Once
			b.runtime.OnCreate = func(callCtx context.Context, _ config.ClusterSpec) {
				defer GinkgoRecover()
				once.Do(cancel)
				Expect(callCtx.Err()).NotTo(HaveOccurred())
			}
			b.orch.Workers = 1
			topo := topology([]string{"a", "b", "c"}, []string{"a"})

			summary, err := b.orch.Run(runCtx, topo)

			Expect(err).To(HaveOccurred())
			Expect(summary.Stage).To(Equal(provisioning.StagePartiallyFailed))
			Expect(b.runtime.Created()).To(Equal([]string{"a"}))
			Expect(clusterByName(summary, "a").Kind).To(Equal(provisioning.KindSkippedDependency))
			Expect(clusterByName(summary, "a").Reason).To(ContainSubstring("run cancelled"))
			Expect(clusterByName(summary, "b").Reason).To(ContainSubstring("run cancelled"))
			Expect(b.tool.Installs()).To(BeEmpty())
		})

		It("stays Done when cancelled during the last call", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			b.tool.OnPeer = func(context.Context, *provisioning.Handle, *provisioning.Handle) {
				cancel()
			}
			topo := topology([]string{"a", "b"}, []string{"a", "b"}, [2]string{"a", "b"})

			summary, err := b.orch.Run(runCtx, topo)

			Expect(runCtx.Err()).To(HaveOccurred())
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage).To(Equal(provisioning.StageDone))
			Expect(summary.Failures()).To(BeEmpty())
			Expect(summary.Peerings[0].Status).To(Equal(string(provisioning.Peered)))
		})

		It("fails when cancellation leaves peerings undispatched", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			b.tool.OnPeer = func(context.Context, *provisioning.Handle, *provisioning.Handle) {
				cancel()
			}
			topo := topology([]string{"a", "b", "c"}, []string{"a", "b", "c"},
				[2]string{"a", "b"}, [2]string{"a", "c"})

			summary, err := b.orch.Run(runCtx, topo)

			Expect(err).To(MatchError(ContainSubstring("run cancelled")))
			Expect(summary.Stage).To(Equal(provisioning.StagePartiallyFailed))
			Expect(b.tool.Peers()).To(HaveLen(1))
			Expect(summary.Peerings[1].Kind).To(Equal(provisioning.KindSkippedDependency))
		})
	})

	Describe("artifacts", func() {
		It("records sink failures as warnings", func() {
			b.sink.err = errors.New("bucket not writable")
			topo := topology([]string{"a"}, nil)

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			a := clusterByName(summary, "a")
			Expect(a.Status).To(Equal(string(provisioning.ClusterReady)))
			Expect(a.Warnings).To(ConsistOf(ContainSubstring("bucket not writable")))
			Expect(b.observer.EventsOfType(provisioning.EventWarning)).To(HaveLen(1))
		})
	})

	Describe("invariants", func() {
		It("gives every declared entity exactly one terminal outcome", func() {
			b.runtime.CreateErrors["c"] = errors.New("boom")
			b.tool.InstallErrors["b"] = errors.New("boom")
			topo := topology([]string{"a", "b", "c", "d"}, []string{"a", "b", "c", "d"},
				[2]string{"a", "b"}, [2]string{"c", "d"}, [2]string{"a", "d"})

			summary, err := b.orch.Run(ctx, topo)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage.Terminal()).To(BeTrue())
			Expect(summary.Clusters).To(HaveLen(4))
			Expect(summary.ToolInstalls).To(HaveLen(4))
			Expect(summary.Peerings).To(HaveLen(3))
			for _, c := range summary.Clusters {
				Expect(c.Status).To(BeElementOf(string(provisioning.ClusterReady), string(provisioning.ClusterFailed)))
			}
			for _, in := range summary.ToolInstalls {
				Expect(in.Status).To(BeElementOf(string(provisioning.Installed), string(provisioning.InstallFailed)))
			}
			for _, p := range summary.Peerings {
				Expect(p.Status).To(BeElementOf(string(provisioning.Peered), string(provisioning.PeeringFailed)))
			}
			Expect(summary.Failures()).To(HaveLen(5))
			Expect(b.tool.Peers()).To(Equal([][2]string{{"a", "d"}}))
		})
	})

	Describe("Down", func() {
		It("deletes every cluster, its artifact and the network", func() {
			topo := topology([]string{"a", "b"}, nil)

			Expect(b.orch.Down(ctx, topo)).To(Succeed())

			Expect(b.runtime.Deleted()).To(ConsistOf("a", "b"))
			Expect(b.sink.removed).To(ConsistOf("a", "b"))
			Expect(b.network.removed).To(Equal([]string{config.DefaultNetworkName}))
		})
	})
})
