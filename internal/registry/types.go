// Package registry tracks in-flight subagents across hook invocations.
//
// Each spawn event registers an entry keyed by agent ID; the matching stop
// event pops it. Because every lifecycle event is processed by a separate
// short-lived process, the registry is persisted to disk after every
// mutation and guarded by a file lock so concurrent hook processes cannot
// lose each other's updates. Subagents that crash without a stop event are
// reclaimed by a staleness sweep.
package registry

import "time"

// Entry describes one in-flight subagent.
type Entry struct {
	// AgentID uniquely identifies the subagent among active entries.
	AgentID string `json:"agent_id"`

	// AgentType is the category or role label, e.g. "backend-engineer".
	AgentType string `json:"agent_type"`

	// SessionID identifies the parent orchestrating session. Used for
	// correlation, not uniqueness.
	SessionID string `json:"session_id"`

	// Cwd is the absolute working directory of the subagent.
	Cwd string `json:"cwd"`

	// ProjectName is derived from Cwd.
	ProjectName string `json:"project_name"`

	// StartedAt is when the spawn event was processed.
	StartedAt time.Time `json:"started_at"`

	// GitBranch and GitCommit are best-effort snapshots at spawn time.
	GitBranch string `json:"git_branch,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`

	// TaskDescription is the task prompt, truncated for storage.
	TaskDescription string `json:"task_description,omitempty"`
}

// State is the persisted registry: all active entries keyed by agent ID.
type State struct {
	Agents      map[string]Entry `json:"agents"`
	LastUpdated time.Time        `json:"last_updated"`
}

// newState returns an empty State with an initialized agents map.
func newState() *State {
	return &State{Agents: make(map[string]Entry)}
}
