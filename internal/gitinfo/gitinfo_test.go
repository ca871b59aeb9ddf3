package gitinfo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRunner returns canned output per git subcommand.
type fakeRunner struct {
	branchOut string
	branchErr error
	commitOut string
	commitErr error
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ string, args ...string) ([]byte, error) {
	if strings.Contains(strings.Join(args, " "), "--abbrev-ref") {
		return []byte(f.branchOut), f.branchErr
	}
	return []byte(f.commitOut), f.commitErr
}

func TestInspectReturnsBranchAndCommit(t *testing.T) {
	runner := &fakeRunner{branchOut: "main\n", commitOut: "abc123\n"}
	inspector := NewInspectorWithRunner(runner, time.Second)

	info := inspector.Inspect(context.Background(), "/proj")
	if info.Branch != "main" {
		t.Errorf("Branch = %q, want %q", info.Branch, "main")
	}
	if info.Commit != "abc123" {
		t.Errorf("Commit = %q, want %q", info.Commit, "abc123")
	}
}

func TestBranchFailureDoesNotSuppressCommit(t *testing.T) {
	runner := &fakeRunner{
		branchErr: errors.New("not a git repository"),
		commitOut: "abc123",
	}
	inspector := NewInspectorWithRunner(runner, time.Second)

	info := inspector.Inspect(context.Background(), "/proj")
	if info.Branch != "" {
		t.Errorf("Branch = %q, want empty on failure", info.Branch)
	}
	if info.Commit != "abc123" {
		t.Errorf("Commit = %q, want %q despite branch failure", info.Commit, "abc123")
	}
}

func TestMissingGitYieldsEmptyInfo(t *testing.T) {
	runner := &fakeRunner{
		branchErr: errors.New("exec: git: not found"),
		commitErr: errors.New("exec: git: not found"),
	}
	inspector := NewInspectorWithRunner(runner, time.Second)

	info := inspector.Inspect(context.Background(), "/proj")
	if info != (Info{}) {
		t.Errorf("Inspect = %+v, want zero-value Info", info)
	}
}
