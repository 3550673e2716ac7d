//go:build kind

package kind

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

// Kubectl executes a kubectl command against cluster and returns output.
func (f *Framework) Kubectl(cluster string, args ...string) (string, error) {
	fullArgs := append([]string{"--kubeconfig", f.KubeconfigPath(cluster)}, args...)
	// #nosec G204 -- test code with controlled command arguments
	cmd := exec.Command("kubectl", fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%v: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// KubectlMust executes kubectl and fails the test on error.
func (f *Framework) KubectlMust(t *testing.T, cluster string, args ...string) string {
	t.Helper()
	output, err := f.Kubectl(cluster, args...)
	if err != nil {
		t.Fatalf("kubectl (%s) %s: %v", cluster, strings.Join(args, " "), err)
	}
	return output
}
