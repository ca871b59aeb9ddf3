package verify

import (
	"context"

	"github.com/trailhook/trailhook/internal/logging"
	"github.com/trailhook/trailhook/internal/sessionstate"
	"github.com/trailhook/trailhook/internal/util"
)

// TestReport is the outcome of verifying the tests associated with an
// agent's modified files.
type TestReport struct {
	Ran     bool
	Passed  bool
	Summary string
	State   *sessionstate.State
}

// Verifier resolves and runs the tests covering an agent's modified
// files, tracking outcomes in the shared session state.
type Verifier struct {
	discoverer TestDiscoverer
	runner     TestRunner
	logger     *logging.Logger
}

// NewVerifier returns a Verifier using the given collaborators.
func NewVerifier(discoverer TestDiscoverer, runner TestRunner, logger *logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Verifier{discoverer: discoverer, runner: runner, logger: logger}
}

// VerifyTests discovers the test files for each modified file, dedupes
// the combined set, and runs it once. No associated tests is not a
// failure. Passing runs merge the test files into the state's passing
// set; failing runs record each newly-failing file with a zero-attempt
// pending fix.
func (v *Verifier) VerifyTests(ctx context.Context, cwd string, modified []string, state *sessionstate.State) TestReport {
	var testFiles []string
	for _, path := range modified {
		found, err := v.discoverer.FindTests(cwd, path)
		if err != nil {
			v.logger.Warn("test discovery failed", "file", path, "error", err)
			continue
		}
		testFiles = append(testFiles, found...)
	}
	testFiles = util.Dedupe(testFiles)

	if len(testFiles) == 0 {
		return TestReport{
			Ran:     false,
			Passed:  true,
			Summary: "no tests for modified files",
			State:   state,
		}
	}

	run, err := v.runner.Run(ctx, cwd, testFiles)
	if err != nil {
		v.logger.Warn("test runner unavailable", "error", err)
		return TestReport{
			Ran:     false,
			Passed:  true,
			Summary: "test runner unavailable",
			State:   state,
		}
	}

	if run.Passed {
		return TestReport{
			Ran:     true,
			Passed:  true,
			Summary: run.Summary,
			State:   state.WithPassing(testFiles...),
		}
	}

	for _, failure := range run.Failures {
		state = state.WithFailure(failure.TestFile, failure.Error)
	}
	return TestReport{
		Ran:     true,
		Passed:  false,
		Summary: run.Summary,
		State:   state,
	}
}
