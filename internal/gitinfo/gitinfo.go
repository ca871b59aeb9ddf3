// Package gitinfo provides best-effort git branch/commit inspection for
// telemetry correlation. Git being unavailable, or the cwd not being a
// repository, is a normal outcome: inspection degrades to empty fields
// and never returns an error.
package gitinfo

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Info is a snapshot of the repository state at spawn time. Either field
// may be empty when inspection failed.
type Info struct {
	Branch string
	Commit string
}

// Runner abstracts command execution for testability.
type Runner interface {
	// Run executes a command in dir and returns its combined output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// CLIRunner executes commands using os/exec.
type CLIRunner struct{}

func (CLIRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Inspector looks up git metadata with a bounded per-call timeout.
type Inspector struct {
	runner  Runner
	timeout time.Duration
}

// NewInspector creates an Inspector that shells out to the git CLI.
func NewInspector(timeout time.Duration) *Inspector {
	return &Inspector{runner: CLIRunner{}, timeout: timeout}
}

// NewInspectorWithRunner creates an Inspector with a custom runner.
// This is primarily useful for testing.
func NewInspectorWithRunner(runner Runner, timeout time.Duration) *Inspector {
	return &Inspector{runner: runner, timeout: timeout}
}

// Inspect fetches the current branch and commit of the repository at cwd.
// Branch and commit are looked up independently: a failure on one must not
// suppress the other.
func (i *Inspector) Inspect(ctx context.Context, cwd string) Info {
	var info Info

	if out, err := i.run(ctx, cwd, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		info.Branch = out
	}
	if out, err := i.run(ctx, cwd, "rev-parse", "HEAD"); err == nil {
		info.Commit = out
	}
	return info
}

func (i *Inspector) run(ctx context.Context, cwd string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	out, err := i.runner.Run(ctx, cwd, "git", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
