// Package telemetry defines the immutable audit records describing
// subagent runs and the append-only store they are written to.
package telemetry

import "time"

// Status is the terminal outcome recorded for a subagent run.
type Status string

const (
	// StatusCompleted means validation and tests found nothing wrong.
	StatusCompleted Status = "completed"

	// StatusFailed means validation reported problems or tests did not
	// pass.
	StatusFailed Status = "failed"
)

// Record is one immutable audit fact about a completed (or failed)
// subagent run. Once written it is never updated or deleted.
//
// Status is derived partly from content the agent itself produced
// (transcript success phrasing, its final summary), so it is
// self-reported: downstream consumers must not treat it as ground truth
// about what the agent actually accomplished.
type Record struct {
	RecordID  string `json:"record_id"`
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type"`
	SessionID string `json:"session_id"`

	ProjectName string `json:"project_name"`
	Cwd         string `json:"cwd"`
	GitBranch   string `json:"git_branch,omitempty"`
	GitCommit   string `json:"git_commit,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`

	Status   Status   `json:"status"`
	Keywords []string `json:"keywords"`

	FilesModified []string `json:"files_modified"`
	ToolsUsed     []string `json:"tools_used"`

	FinalSummary string `json:"final_summary,omitempty"`
}

// UnmatchedStop captures verification results for a stop event that had
// no matching registration. It deliberately carries no duration or
// identity beyond what the stop event itself supplied, and it is kept in
// a side-log so uncorrelated data never pollutes the monthly audit files.
type UnmatchedStop struct {
	RecordID  string    `json:"record_id"`
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id,omitempty"`
	EndedAt   time.Time `json:"ended_at"`

	FilesModified []string `json:"files_modified"`
	Valid         bool     `json:"valid"`
	TestsPassed   bool     `json:"tests_passed"`
	Summary       string   `json:"summary,omitempty"`
}
