package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/trailhook/trailhook/internal/sessionstate"
	"github.com/trailhook/trailhook/internal/transcript"
)

type fakeChecker struct {
	result TypeCheckResult
	err    error
	calls  int
}

func (f *fakeChecker) Check(ctx context.Context, cwd string) (TypeCheckResult, error) {
	f.calls++
	return f.result, f.err
}

func TestValidateNoModifiedFiles(t *testing.T) {
	checker := &fakeChecker{}
	v := NewValidator(checker, nil)

	result := v.Validate(context.Background(), t.TempDir(), &transcript.Parsed{}, sessionstate.New())

	if !result.Valid {
		t.Error("empty transcript should validate")
	}
	if checker.calls != 0 {
		t.Errorf("type checker called %d times, want 0", checker.calls)
	}
	if len(result.State.FilesTouched) != 0 {
		t.Errorf("FilesTouched = %v, want empty", result.State.FilesTouched)
	}
}

func TestValidateRecordsTouchedFiles(t *testing.T) {
	v := NewValidator(&fakeChecker{result: TypeCheckResult{Passed: true}}, nil)
	parsed := &transcript.Parsed{FilesModified: []string{"src/auth.ts", "README.md"}}

	result := v.Validate(context.Background(), t.TempDir(), parsed, sessionstate.New())

	if !result.Valid {
		t.Error("passing type check should validate")
	}
	if len(result.State.FilesTouched) != 2 {
		t.Errorf("FilesTouched = %v, want both modified files", result.State.FilesTouched)
	}
}

func TestValidateSkipsCheckForUntypedFiles(t *testing.T) {
	checker := &fakeChecker{result: TypeCheckResult{Passed: false, Errors: []string{"boom"}}}
	v := NewValidator(checker, nil)
	parsed := &transcript.Parsed{FilesModified: []string{"README.md", "notes.txt", "script.py"}}

	result := v.Validate(context.Background(), t.TempDir(), parsed, sessionstate.New())

	if checker.calls != 0 {
		t.Errorf("type checker called %d times for untyped files, want 0", checker.calls)
	}
	if !result.Valid {
		t.Error("untyped files should not be type-checked")
	}
}

func TestValidateRunsCheckOnceAndSummarizesErrors(t *testing.T) {
	checker := &fakeChecker{result: TypeCheckResult{
		Passed: false,
		Errors: []string{"auth.ts(3): error TS2345", "auth.ts(9): error TS2339", "user.ts(1): error TS2304"},
	}}
	v := NewValidator(checker, nil)
	parsed := &transcript.Parsed{FilesModified: []string{"src/auth.ts", "src/user.ts", "src/api.go"}}

	result := v.Validate(context.Background(), t.TempDir(), parsed, sessionstate.New())

	if checker.calls != 1 {
		t.Errorf("type checker called %d times, want exactly 1", checker.calls)
	}
	if result.Valid {
		t.Error("failing type check should invalidate")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want a single summary error", result.Errors)
	}
	if result.Errors[0] != "Type errors after agent work: 3 errors" {
		t.Errorf("summary = %q", result.Errors[0])
	}
}

func TestValidateCheckerUnavailableIsNotInvalid(t *testing.T) {
	checker := &fakeChecker{err: errors.New("npx: command not found")}
	v := NewValidator(checker, nil)
	parsed := &transcript.Parsed{FilesModified: []string{"main.go"}}

	result := v.Validate(context.Background(), t.TempDir(), parsed, sessionstate.New())

	if !result.Valid {
		t.Error("unavailable checker must not invalidate the result")
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}
	if len(result.State.FilesTouched) != 1 {
		t.Errorf("FilesTouched = %v, want file still recorded", result.State.FilesTouched)
	}
}

func TestValidateDoesNotMutateInputState(t *testing.T) {
	v := NewValidator(&fakeChecker{result: TypeCheckResult{Passed: true}}, nil)
	original := sessionstate.New()
	parsed := &transcript.Parsed{FilesModified: []string{"a.go"}}

	v.Validate(context.Background(), t.TempDir(), parsed, original)

	if len(original.FilesTouched) != 0 {
		t.Errorf("input state mutated: %v", original.FilesTouched)
	}
}
