// Package sessionstate manages the slice of the orchestrating session's
// shared state document that this engine owns: per-session test outcomes
// and touched-file bookkeeping. The document itself is shared with the
// host runtime, so unknown top-level keys are preserved verbatim across a
// load/mutate/save cycle.
//
// All mutations are pure transitions returning an updated copy, which
// keeps completion processing idempotent under retry.
package sessionstate

import (
	"encoding/json"

	"github.com/trailhook/trailhook/internal/util"
)

// PendingFix is the hand-off record for a failing test file awaiting a
// downstream auto-repair workflow. Field names follow the shared document
// convention.
type PendingFix struct {
	TestFile    string `json:"testFile"`
	Error       string `json:"error"`
	FixAttempts int    `json:"fixAttempts"`
}

// Tests tracks test outcomes accumulated over the session.
type Tests struct {
	PassingFiles []string     `json:"passingFiles"`
	FailingFiles []string     `json:"failingFiles"`
	PendingFixes []PendingFix `json:"pendingFixes"`
}

// State is the engine-owned view of the shared session document.
type State struct {
	Tests        Tests
	FilesTouched []string

	// extra holds the top-level keys owned by the host runtime.
	extra map[string]json.RawMessage
}

// New returns an empty State.
func New() *State {
	return &State{
		Tests: Tests{
			PassingFiles: []string{},
			FailingFiles: []string{},
			PendingFixes: []PendingFix{},
		},
		FilesTouched: []string{},
	}
}

// WithTouched returns a copy of the state with the given paths merged
// into the touched-files set. Already-recorded paths are not duplicated.
func (s *State) WithTouched(paths ...string) *State {
	next := s.clone()
	next.FilesTouched = util.Dedupe(append(next.FilesTouched, paths...))
	return next
}

// WithPassing returns a copy of the state with the given test files
// merged into the passing set.
func (s *State) WithPassing(testFiles ...string) *State {
	next := s.clone()
	next.Tests.PassingFiles = util.Dedupe(append(next.Tests.PassingFiles, testFiles...))
	return next
}

// WithFailure returns a copy of the state recording a failing test file.
// A file already tracked as failing is left untouched; a new one is added
// to the failing set and queued as a pending fix with zero attempts.
func (s *State) WithFailure(testFile, errMsg string) *State {
	for _, f := range s.Tests.FailingFiles {
		if f == testFile {
			return s.clone()
		}
	}

	next := s.clone()
	next.Tests.FailingFiles = append(next.Tests.FailingFiles, testFile)
	next.Tests.PendingFixes = append(next.Tests.PendingFixes, PendingFix{
		TestFile:    testFile,
		Error:       errMsg,
		FixAttempts: 0,
	})
	return next
}

func (s *State) clone() *State {
	next := &State{
		Tests: Tests{
			PassingFiles: append([]string{}, s.Tests.PassingFiles...),
			FailingFiles: append([]string{}, s.Tests.FailingFiles...),
			PendingFixes: append([]PendingFix{}, s.Tests.PendingFixes...),
		},
		FilesTouched: append([]string{}, s.FilesTouched...),
	}
	if s.extra != nil {
		next.extra = make(map[string]json.RawMessage, len(s.extra))
		for k, v := range s.extra {
			next.extra[k] = v
		}
	}
	return next
}

// MarshalJSON emits the engine-owned keys alongside the preserved
// host-owned keys.
func (s *State) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(s.extra)+2)
	for k, v := range s.extra {
		doc[k] = v
	}

	tests, err := json.Marshal(s.Tests)
	if err != nil {
		return nil, err
	}
	doc["tests"] = tests

	touched, err := json.Marshal(util.Dedupe(s.FilesTouched))
	if err != nil {
		return nil, err
	}
	doc["filesTouched"] = touched

	return json.Marshal(doc)
}

// UnmarshalJSON splits the document into engine-owned fields and
// preserved host-owned keys.
func (s *State) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*s = *New()

	if raw, ok := doc["tests"]; ok {
		if err := json.Unmarshal(raw, &s.Tests); err != nil {
			return err
		}
		delete(doc, "tests")
	}
	if raw, ok := doc["filesTouched"]; ok {
		if err := json.Unmarshal(raw, &s.FilesTouched); err != nil {
			return err
		}
		delete(doc, "filesTouched")
	}
	if len(doc) > 0 {
		s.extra = doc
	}

	if s.Tests.PassingFiles == nil {
		s.Tests.PassingFiles = []string{}
	}
	if s.Tests.FailingFiles == nil {
		s.Tests.FailingFiles = []string{}
	}
	if s.Tests.PendingFixes == nil {
		s.Tests.PendingFixes = []PendingFix{}
	}
	if s.FilesTouched == nil {
		s.FilesTouched = []string{}
	}
	return nil
}
