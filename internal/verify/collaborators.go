// Package verify runs the post-agent quality gates: project type
// checking for statically-typed work and test runs for the files an
// agent modified. External tools are reached through small collaborator
// interfaces so everything here stays testable without npx or git on
// PATH.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/trailhook/trailhook/internal/util"
)

// TypeCheckResult reports the outcome of a project-wide type check.
type TypeCheckResult struct {
	Passed bool
	Errors []string
}

// TypeChecker runs the project's type checker in a working directory.
type TypeChecker interface {
	Check(ctx context.Context, cwd string) (TypeCheckResult, error)
}

// TestFailure identifies one failing test file.
type TestFailure struct {
	TestFile string
	Error    string
}

// TestRunResult reports the outcome of a single test-runner invocation.
type TestRunResult struct {
	Passed   bool
	Failures []TestFailure
	Summary  string
}

// TestRunner runs a set of test files in a working directory.
type TestRunner interface {
	Run(ctx context.Context, cwd string, testFiles []string) (TestRunResult, error)
}

// TestDiscoverer resolves the test files associated with a modified
// source file.
type TestDiscoverer interface {
	FindTests(cwd, path string) ([]string, error)
}

// Runner executes a command in a directory and returns its combined
// output.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// CLIRunner is the production Runner backed by os/exec.
type CLIRunner struct{}

func (CLIRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// CLITypeChecker shells out to a configured type-check command, for
// example "npx tsc --noEmit".
type CLITypeChecker struct {
	runner  Runner
	command []string
	timeout time.Duration
}

// NewCLITypeChecker returns a checker invoking command with the given
// per-call timeout.
func NewCLITypeChecker(command []string, timeout time.Duration) *CLITypeChecker {
	return &CLITypeChecker{runner: CLIRunner{}, command: command, timeout: timeout}
}

// NewCLITypeCheckerWithRunner is NewCLITypeChecker with an injected
// Runner.
func NewCLITypeCheckerWithRunner(runner Runner, command []string, timeout time.Duration) *CLITypeChecker {
	return &CLITypeChecker{runner: runner, command: command, timeout: timeout}
}

// Check runs the type checker once for the whole project. A non-zero
// exit with output is a legitimate "type errors found" result, not an
// error; an error return means the checker itself could not run.
func (c *CLITypeChecker) Check(ctx context.Context, cwd string) (TypeCheckResult, error) {
	if len(c.command) == 0 {
		return TypeCheckResult{Passed: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := c.runner.Run(ctx, cwd, c.command[0], c.command[1:]...)
	if err == nil {
		return TypeCheckResult{Passed: true}, nil
	}
	if ctx.Err() != nil {
		return TypeCheckResult{}, fmt.Errorf("type checker timed out: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return TypeCheckResult{}, fmt.Errorf("failed to run type checker: %w", err)
	}

	return TypeCheckResult{Passed: false, Errors: errorLines(output)}, nil
}

// CLITestRunner shells out to a configured test command, for example
// "npx jest --silent", appending the test file paths as arguments.
type CLITestRunner struct {
	runner  Runner
	command []string
	timeout time.Duration
}

// NewCLITestRunner returns a runner invoking command with the given
// per-call timeout.
func NewCLITestRunner(command []string, timeout time.Duration) *CLITestRunner {
	return &CLITestRunner{runner: CLIRunner{}, command: command, timeout: timeout}
}

// NewCLITestRunnerWithRunner is NewCLITestRunner with an injected
// Runner.
func NewCLITestRunnerWithRunner(runner Runner, command []string, timeout time.Duration) *CLITestRunner {
	return &CLITestRunner{runner: runner, command: command, timeout: timeout}
}

// Run executes the test command once over testFiles. The CLI gives no
// reliable per-file attribution on failure, so a failing run marks every
// requested file failing with the run's leading output as the error.
func (r *CLITestRunner) Run(ctx context.Context, cwd string, testFiles []string) (TestRunResult, error) {
	if len(r.command) == 0 || len(testFiles) == 0 {
		return TestRunResult{Passed: true, Summary: "no test command configured"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), testFiles...)
	output, err := r.runner.Run(ctx, cwd, r.command[0], args...)
	if err == nil {
		return TestRunResult{
			Passed:  true,
			Summary: fmt.Sprintf("%d test file(s) passed", len(testFiles)),
		}, nil
	}
	if ctx.Err() != nil {
		return TestRunResult{}, fmt.Errorf("test run timed out: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return TestRunResult{}, fmt.Errorf("failed to run tests: %w", err)
	}

	reason := util.Truncate(firstNonEmptyLine(output), 200)
	if reason == "" {
		reason = "test run failed"
	}
	failures := make([]TestFailure, 0, len(testFiles))
	for _, tf := range testFiles {
		failures = append(failures, TestFailure{TestFile: tf, Error: reason})
	}
	return TestRunResult{
		Passed:   false,
		Failures: failures,
		Summary:  fmt.Sprintf("%d test file(s) failed", len(testFiles)),
	}, nil
}

func errorLines(output []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.Contains(strings.ToLower(line), "error") {
			lines = append(lines, util.Truncate(strings.TrimSpace(line), 200))
		}
	}
	if len(lines) == 0 {
		lines = []string{"type check failed"}
	}
	return lines
}

func firstNonEmptyLine(output []byte) string {
	for _, line := range strings.Split(string(output), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
