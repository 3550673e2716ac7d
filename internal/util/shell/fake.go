package shell

import (
	"context"
	"strings"
	"sync"
)

// Response is what FakeRunner returns for a matching command.
type Response struct {
	Stdout []byte
	Err    error
}

// FakeRunner records commands and answers them from Responses, keyed by
// the longest matching command-line prefix. Unmatched commands succeed
// with empty output.
type FakeRunner struct {
	Responses map[string]Response

	mu       sync.Mutex
	commands []Command
}

// NewFakeRunner creates a runner with no canned responses.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: map[string]Response{}}
}

// On registers a response for command lines starting with prefix.
func (f *FakeRunner) On(prefix string, stdout string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[prefix] = Response{Stdout: []byte(stdout), Err: err}
	return f
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, cmd Command) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)

	line := cmd.String()
	best := -1
	var resp Response
	for prefix, r := range f.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			resp = r
		}
	}
	return resp.Stdout, resp.Err
}

// Commands returns every command run so far.
func (f *FakeRunner) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// Lines returns the rendered command lines run so far.
func (f *FakeRunner) Lines() []string {
	cmds := f.Commands()
	lines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		lines = append(lines, c.String())
	}
	return lines
}
