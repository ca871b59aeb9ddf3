// Package hooks correlates subagent lifecycle events. The spawn entry
// point registers an agent; the stop entry point pops it, verifies the
// work the transcript describes, and writes the telemetry record. Both
// entry points always return a response, whatever failed internally.
package hooks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailhook/trailhook/internal/config"
	"github.com/trailhook/trailhook/internal/gitinfo"
	"github.com/trailhook/trailhook/internal/keywords"
	"github.com/trailhook/trailhook/internal/logging"
	"github.com/trailhook/trailhook/internal/registry"
	"github.com/trailhook/trailhook/internal/sessionstate"
	"github.com/trailhook/trailhook/internal/telemetry"
	"github.com/trailhook/trailhook/internal/transcript"
	"github.com/trailhook/trailhook/internal/util"
	"github.com/trailhook/trailhook/internal/verify"
)

const maxTaskDescriptionLen = 200

// Orchestrator wires the registry, verifiers, and telemetry writer
// behind the two lifecycle entry points. The registry, session-state,
// and telemetry stores are opened per event from the event's working
// directory, so one Orchestrator serves any number of projects.
type Orchestrator struct {
	cfg        *config.Config
	git        *gitinfo.Inspector
	checker    verify.TypeChecker
	discoverer verify.TestDiscoverer
	runner     verify.TestRunner
	logger     *logging.Logger

	now   func() time.Time
	newID func() string
}

// New builds an Orchestrator with CLI-backed collaborators from cfg.
func New(cfg *config.Config, logger *logging.Logger) (*Orchestrator, error) {
	discoverer, err := verify.NewGlobDiscoverer(cfg.Verify.TestGlobs)
	if err != nil {
		return nil, fmt.Errorf("failed to build test discoverer: %w", err)
	}
	return NewWithCollaborators(cfg,
		gitinfo.NewInspector(cfg.Verify.GitTimeout()),
		verify.NewCLITypeChecker(cfg.Verify.TypeCheckCommand, cfg.Verify.CheckTimeout()),
		discoverer,
		verify.NewCLITestRunner(cfg.Verify.TestCommand, cfg.Verify.CheckTimeout()),
		logger), nil
}

// NewWithCollaborators is New with every external collaborator injected.
func NewWithCollaborators(cfg *config.Config, git *gitinfo.Inspector, checker verify.TypeChecker, discoverer verify.TestDiscoverer, runner verify.TestRunner, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Orchestrator{
		cfg:        cfg,
		git:        git,
		checker:    checker,
		discoverer: discoverer,
		runner:     runner,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// HandleSpawn processes an agent-spawned event payload.
func (o *Orchestrator) HandleSpawn(ctx context.Context, payload []byte) (resp *Response) {
	defer o.recoverToContinue("subagent-start", &resp)

	event, err := ParseEvent(payload)
	if err != nil {
		o.logger.Warn("unparseable spawn payload", "error", err)
		return continueResponse()
	}
	return o.handleSpawn(ctx, event)
}

// HandleStop processes an agent-stopped event payload.
func (o *Orchestrator) HandleStop(ctx context.Context, payload []byte) (resp *Response) {
	defer o.recoverToContinue("subagent-stop", &resp)

	event, err := ParseEvent(payload)
	if err != nil {
		o.logger.Warn("unparseable stop payload", "error", err)
		return continueResponse()
	}
	return o.handleStop(ctx, event)
}

func (o *Orchestrator) handleSpawn(ctx context.Context, event Event) *Response {
	logger := o.logger.WithHook("subagent-start").WithAgent(event.AgentID)
	if event.AgentID == "" {
		logger.Warn("spawn event without an agent id, skipping")
		return continueResponse()
	}

	store := registry.NewStore(o.cfg.Paths.ResolveStateDir(event.Cwd), logger)

	if removed, err := store.CleanupStale(o.cfg.Registry.StaleAfter()); err != nil {
		logger.Warn("stale cleanup failed", "error", err)
	} else if removed > 0 {
		logger.Info("evicted stale agents", "count", removed)
	}

	info := o.git.Inspect(ctx, event.Cwd)

	entry := registry.Entry{
		AgentID:         event.AgentID,
		AgentType:       event.AgentType,
		SessionID:       event.SessionID,
		Cwd:             event.Cwd,
		ProjectName:     DeriveProjectName(event.Cwd),
		StartedAt:       o.now().UTC(),
		GitBranch:       info.Branch,
		GitCommit:       info.Commit,
		TaskDescription: util.Truncate(event.TaskDescription, maxTaskDescriptionLen),
	}
	if err := store.Register(entry); err != nil {
		logger.Error("failed to register agent", "error", err)
		return continueResponse()
	}

	logger.Info("agent registered", "agent_type", entry.AgentType, "project", entry.ProjectName)
	return continueResponse()
}

func (o *Orchestrator) handleStop(ctx context.Context, event Event) *Response {
	logger := o.logger.WithHook("subagent-stop").WithAgent(event.AgentID)
	if event.AgentID == "" {
		logger.Warn("stop event without an agent id, skipping")
		return continueResponse()
	}

	stateDir := o.cfg.Paths.ResolveStateDir(event.Cwd)
	store := registry.NewStore(stateDir, logger)

	entry, err := store.Pop(event.AgentID)
	if err != nil {
		logger.Error("failed to pop agent", "error", err)
		return continueResponse()
	}
	if entry == nil {
		return o.handleOrphanedStop(ctx, event, logger)
	}
	return o.handleCompletedStop(ctx, event, entry, logger)
}

func (o *Orchestrator) handleCompletedStop(ctx context.Context, event Event, entry *registry.Entry, logger *logging.Logger) *Response {
	endedAt := o.now().UTC()
	duration := endedAt.Sub(entry.StartedAt)
	if duration < 0 {
		duration = 0
	}

	content := o.readTranscript(event.TranscriptPath, logger)
	parsed := transcript.Parse(content, logger)

	sessions := sessionstate.NewStore(o.cfg.Paths.ResolveStateDir(event.Cwd), logger)
	state := o.loadState(sessions, logger)

	validation, tests, state := o.runVerification(ctx, event.Cwd, parsed, state, logger)

	status := telemetry.StatusCompleted
	if !validation.Valid || !tests.Passed {
		status = telemetry.StatusFailed
	}

	agentType := entry.AgentType
	if agentType == "" {
		agentType = event.AgentType
	}

	record := &telemetry.Record{
		RecordID:      o.newID(),
		AgentID:       entry.AgentID,
		AgentType:     agentType,
		SessionID:     entry.SessionID,
		ProjectName:   entry.ProjectName,
		Cwd:           entry.Cwd,
		GitBranch:     entry.GitBranch,
		GitCommit:     entry.GitCommit,
		StartedAt:     entry.StartedAt,
		EndedAt:       endedAt,
		DurationMs:    duration.Milliseconds(),
		Status:        status,
		Keywords:      keywords.ExtractWithAgentType(agentType, content, parsed.FinalOutput, entry.TaskDescription),
		FilesModified: parsed.FilesModified,
		ToolsUsed:     parsed.ToolsUsed,
		FinalSummary:  parsed.FinalOutput,
	}

	writer := telemetry.NewWriter(o.cfg.Paths.ResolveTelemetryDir(event.Cwd))
	written := true
	if err := writer.Write(record); err != nil {
		logger.Error("failed to write telemetry", "error", err)
		written = false
	}

	o.saveState(sessions, state, logger)

	logger.Info("agent completed",
		"status", string(status),
		"duration_ms", record.DurationMs,
		"files_modified", len(record.FilesModified))

	return &Response{
		Continue: true,
		Message:  stopMessage(status, validation, tests),
		Output: &Output{
			Validation:       validation,
			Tests:            tests,
			TelemetryWritten: written,
			DurationMs:       record.DurationMs,
		},
	}
}

// handleOrphanedStop verifies what it can but writes no telemetry
// record: without the original registration there is no trustworthy
// identity or duration to record. Verification results go to the
// unmatched side-log instead.
func (o *Orchestrator) handleOrphanedStop(ctx context.Context, event Event, logger *logging.Logger) *Response {
	logger.Warn("stop event with no matching registration")

	if event.TranscriptPath == "" {
		return continueResponse()
	}

	content := o.readTranscript(event.TranscriptPath, logger)
	parsed := transcript.Parse(content, logger)

	sessions := sessionstate.NewStore(o.cfg.Paths.ResolveStateDir(event.Cwd), logger)
	state := o.loadState(sessions, logger)

	validation, tests, state := o.runVerification(ctx, event.Cwd, parsed, state, logger)
	o.saveState(sessions, state, logger)

	stop := &telemetry.UnmatchedStop{
		RecordID:      o.newID(),
		AgentID:       event.AgentID,
		SessionID:     event.SessionID,
		EndedAt:       o.now().UTC(),
		FilesModified: parsed.FilesModified,
		Valid:         validation.Valid,
		TestsPassed:   tests.Passed,
		Summary:       tests.Summary,
	}
	writer := telemetry.NewWriter(o.cfg.Paths.ResolveTelemetryDir(event.Cwd))
	if err := writer.WriteUnmatched(stop); err != nil {
		logger.Error("failed to write unmatched stop", "error", err)
	}

	return &Response{
		Continue: true,
		Message:  "agent was not tracked, verification results recorded without telemetry",
		Output: &Output{
			Validation:       validation,
			Tests:            tests,
			TelemetryWritten: false,
		},
	}
}

// runVerification runs the validator and, only when files were
// modified, the test verifier. Both state transitions are threaded
// through so the caller persists one final state.
func (o *Orchestrator) runVerification(ctx context.Context, cwd string, parsed *transcript.Parsed, state *sessionstate.State, logger *logging.Logger) (*ValidationSummary, *TestSummary, *sessionstate.State) {
	validator := verify.NewValidator(o.checker, logger)
	result := validator.Validate(ctx, cwd, parsed, state)
	validation := &ValidationSummary{Valid: result.Valid, Errors: result.Errors}
	state = result.State

	tests := &TestSummary{Ran: false, Passed: true}
	if len(parsed.FilesModified) > 0 {
		verifier := verify.NewVerifier(o.discoverer, o.runner, logger)
		report := verifier.VerifyTests(ctx, cwd, parsed.FilesModified, state)
		tests = &TestSummary{Ran: report.Ran, Passed: report.Passed, Summary: report.Summary}
		state = report.State
	}
	return validation, tests, state
}

func (o *Orchestrator) readTranscript(path string, logger *logging.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("transcript unreadable", "path", path, "error", err)
		return ""
	}
	return string(data)
}

func (o *Orchestrator) loadState(sessions *sessionstate.Store, logger *logging.Logger) *sessionstate.State {
	state, err := sessions.Load()
	if err != nil {
		logger.Warn("failed to load session state", "error", err)
		return sessionstate.New()
	}
	return state
}

func (o *Orchestrator) saveState(sessions *sessionstate.Store, state *sessionstate.State, logger *logging.Logger) {
	if err := sessions.Save(state); err != nil {
		logger.Error("failed to save session state", "error", err)
	}
}

// recoverToContinue converts a panic anywhere below an entry point into
// a minimal continue response. The hook process must never crash.
func (o *Orchestrator) recoverToContinue(hook string, resp **Response) {
	if r := recover(); r != nil {
		o.logger.Error("hook panicked", "hook", hook, "panic", fmt.Sprint(r))
		*resp = continueResponse()
	}
}

func stopMessage(status telemetry.Status, validation *ValidationSummary, tests *TestSummary) string {
	if status == telemetry.StatusCompleted {
		return ""
	}
	var issues []string
	issues = append(issues, validation.Errors...)
	if tests.Ran && !tests.Passed {
		issues = append(issues, tests.Summary)
	}
	if len(issues) == 0 {
		return "agent work failed verification"
	}
	return strings.Join(issues, "; ")
}
