package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/testbench/internal/util/naming"
)

// FileSink writes kubeconfigs to <Dir>/kubeconfigs/<cluster>.yaml.
type FileSink struct {
	Dir string
}

// NewFileSink creates a sink rooted at dir, usually "out".
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Path returns the kubeconfig path of cluster.
func (s *FileSink) Path(cluster string) string {
	return filepath.Join(s.Dir, "kubeconfigs", naming.KubeconfigFile(cluster))
}

func (s *FileSink) Write(_ context.Context, cluster string, kubeconfig []byte) (string, error) {
	path := s.Path(cluster)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create kubeconfig directory: %w", err)
	}
	// Kubeconfigs carry client credentials.
	if err := os.WriteFile(path, kubeconfig, 0o600); err != nil {
		return "", fmt.Errorf("failed to write kubeconfig: %w", err)
	}
	return path, nil
}

// Remove deletes a cluster's kubeconfig. A missing file is not an error.
func (s *FileSink) Remove(cluster string) error {
	if err := os.Remove(s.Path(cluster)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove kubeconfig: %w", err)
	}
	return nil
}
