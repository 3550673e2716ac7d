package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"sigs.k8s.io/kind/pkg/exec"
)

// Command describes one process invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin []byte

	// Env is appended to the current process environment.
	Env []string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands and returns their stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// Error is returned when a command exits unsuccessfully.
type Error struct {
	Command string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	Log logr.Logger
}

// NewExecRunner creates a runner logging command lines at V(1).
func NewExecRunner(log logr.Logger) *ExecRunner {
	return &ExecRunner{Log: log}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	r.Log.V(1).Info("running command", "command", c.String())

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)
	if c.Stdin != nil {
		cmd.SetStdin(bytes.NewReader(c.Stdin))
	}
	if len(c.Env) > 0 {
		cmd.SetEnv(append(os.Environ(), c.Env...)...)
	}

	if err := cmd.Run(); err != nil {
		inner := err
		if runErr := exec.RunErrorForError(err); runErr != nil {
			inner = runErr.Inner
		}
		return stdout.Bytes(), &Error{
			Command: c.String(),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     inner,
		}
	}

	return stdout.Bytes(), nil
}
