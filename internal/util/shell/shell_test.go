package shell

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "k3d cluster list", Command{Name: "k3d", Args: []string{"cluster", "list"}}.String())
	assert.Equal(t, "docker", Command{Name: "docker"}.String())
}

func TestExecRunner_Stdout(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out, err := NewExecRunner(logr.Discard()).Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", "cat"},
		Stdin: []byte("from stdin"),
	})

	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(out))
}

func TestExecRunner_FailureCarriesStderr(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := NewExecRunner(logr.Discard()).Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo nope >&2; exit 3"},
	})

	require.Error(t, err)
	var shellErr *Error
	require.ErrorAs(t, err, &shellErr)
	assert.Equal(t, "nope", shellErr.Stderr)
	assert.Contains(t, err.Error(), "sh -c")
}

func TestFakeRunner_LongestPrefixWins(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	f := NewFakeRunner().
		On("k3d", "generic", nil).
		On("k3d kubeconfig get", "kubeconfig", nil).
		On("k3d cluster delete", "", boom)

	out, err := f.Run(context.Background(), Command{Name: "k3d", Args: []string{"kubeconfig", "get", "a"}})
	require.NoError(t, err)
	assert.Equal(t, "kubeconfig", string(out))

	_, err = f.Run(context.Background(), Command{Name: "k3d", Args: []string{"cluster", "delete", "a"}})
	assert.ErrorIs(t, err, boom)

	out, err = f.Run(context.Background(), Command{Name: "docker", Args: []string{"ps"}})
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.Equal(t, []string{
		"k3d kubeconfig get a",
		"k3d cluster delete a",
		"docker ps",
	}, f.Lines())
}
