package verify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/trailhook/trailhook/internal/logging"
	"github.com/trailhook/trailhook/internal/sessionstate"
	"github.com/trailhook/trailhook/internal/transcript"
)

// staticallyTypedExts are the source extensions that warrant a
// project-wide type check when touched.
var staticallyTypedExts = map[string]bool{
	".ts":    true,
	".tsx":   true,
	".go":    true,
	".rs":    true,
	".java":  true,
	".kt":    true,
	".swift": true,
}

// ValidationResult reports what an agent's transcript shows it did and
// whether the project type-checks afterwards.
type ValidationResult struct {
	Valid         bool
	FilesModified []string
	Errors        []string
	State         *sessionstate.State
}

// Validator checks an agent's output against the project's type checker
// and folds modified files into the session's touched-file bookkeeping.
type Validator struct {
	checker TypeChecker
	logger  *logging.Logger
}

// NewValidator returns a Validator using the given type checker.
func NewValidator(checker TypeChecker, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Validator{checker: checker, logger: logger}
}

// Validate records parsed.FilesModified into state and, if any modified
// file is statically typed, runs the type checker once for the whole
// project. A checker that cannot run is logged and skipped; only an
// actual failing check marks the result invalid, as a single summary
// error rather than one error per file.
func (v *Validator) Validate(ctx context.Context, cwd string, parsed *transcript.Parsed, state *sessionstate.State) ValidationResult {
	result := ValidationResult{
		Valid:         true,
		FilesModified: parsed.FilesModified,
		State:         state,
	}
	if len(parsed.FilesModified) == 0 {
		return result
	}

	result.State = state.WithTouched(parsed.FilesModified...)

	if !anyStaticallyTyped(parsed.FilesModified) {
		v.logger.Debug("skipping type check, no statically-typed files modified")
		return result
	}

	check, err := v.checker.Check(ctx, cwd)
	if err != nil {
		v.logger.Warn("type checker unavailable", "error", err)
		return result
	}
	if !check.Passed {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Type errors after agent work: %d errors", len(check.Errors)))
	}
	return result
}

func anyStaticallyTyped(paths []string) bool {
	for _, p := range paths {
		if staticallyTypedExts[strings.ToLower(filepath.Ext(p))] {
			return true
		}
	}
	return false
}
