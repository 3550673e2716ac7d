package helm

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChart_String(t *testing.T) {
	t.Parallel()

	c := Chart{RepoURL: "https://helm.cilium.io/", Name: "cilium", Version: "1.18.6"}
	assert.Equal(t, "https://helm.cilium.io//cilium@1.18.6", c.String())
}

func TestInstallOrUpgrade_InvalidKubeconfig(t *testing.T) {
	t.Parallel()

	err := NewClient(logr.Discard()).InstallOrUpgrade(context.Background(), []byte("not: [a kubeconfig"), Release{
		Name:      "cilium",
		Namespace: "kube-system",
		Chart:     Chart{RepoURL: "https://helm.cilium.io/", Name: "cilium", Version: "1.18.6"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kubeconfig")
}

func TestKubeconfigGetter(t *testing.T) {
	t.Parallel()

	kubeconfig := []byte(`apiVersion: v1
kind: Config
clusters:
- name: lab
  cluster:
    server: https://127.0.0.1:6443
contexts:
- name: lab
  context:
    cluster: lab
    user: admin
current-context: lab
users:
- name: admin
  user:
    token: secret
`)

	g, err := newKubeconfigGetter(kubeconfig, "liqo")
	require.NoError(t, err)

	cfg, err := g.ToRESTConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://127.0.0.1:6443", cfg.Host)

	ns, _, err := g.ToRawKubeConfigLoader().Namespace()
	require.NoError(t, err)
	assert.Equal(t, "liqo", ns)
}

func TestKubeconfigGetter_InvalidKubeconfig(t *testing.T) {
	t.Parallel()

	_, err := newKubeconfigGetter([]byte("{"), "default")
	assert.Error(t, err)
}
