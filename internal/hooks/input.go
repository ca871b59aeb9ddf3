package hooks

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
)

// Event is the canonical form of an inbound lifecycle event. Historical
// dispatchers have used several names for the same fields; normalization
// happens once here and alias ambiguity never travels past this type.
type Event struct {
	AgentID         string
	AgentType       string
	SessionID       string
	Cwd             string
	TranscriptPath  string
	TaskDescription string
}

// Field aliases in priority order: the first key present and non-empty
// wins.
var (
	agentIDKeys    = []string{"agent_id", "subagent_id", "id"}
	agentTypeKeys  = []string{"agent_type", "subagent_type", "type"}
	sessionIDKeys  = []string{"session_id", "sessionId"}
	cwdKeys        = []string{"cwd", "working_directory"}
	transcriptKeys = []string{"transcript_path", "transcript"}
	taskKeys       = []string{"task_description", "description", "prompt"}
)

// ParseEvent decodes a raw event JSON bag into canonical form. Unknown
// keys are ignored; non-string values for known keys are ignored.
func ParseEvent(data []byte) (Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, err
	}
	return NormalizeEvent(raw), nil
}

// NormalizeEvent resolves field aliases in a decoded event bag.
func NormalizeEvent(raw map[string]json.RawMessage) Event {
	return Event{
		AgentID:         firstString(raw, agentIDKeys),
		AgentType:       firstString(raw, agentTypeKeys),
		SessionID:       firstString(raw, sessionIDKeys),
		Cwd:             firstString(raw, cwdKeys),
		TranscriptPath:  firstString(raw, transcriptKeys),
		TaskDescription: firstString(raw, taskKeys),
	}
}

func firstString(raw map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		val, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			continue
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// tempDirNameRe matches anonymous scratch-directory names: long hex
// hashes, bare tmp/temp, or tmp/temp with a separated random suffix.
// Names that merely start with "temp" (template, temperature) must not
// match.
var tempDirNameRe = regexp.MustCompile(`(?i)^(?:[0-9a-f]{8,}|tmp|temp|(?:tmp|temp)[-._][0-9a-z]+)$`)

// DeriveProjectName maps a working directory to a human-meaningful
// project name. When the leaf directory looks like an anonymous
// temp-directory hash, the parent directory's name is used instead.
func DeriveProjectName(cwd string) string {
	cwd = strings.TrimRight(cwd, "/")
	if cwd == "" {
		return "unknown"
	}

	name := filepath.Base(cwd)
	if tempDirNameRe.MatchString(name) {
		parent := filepath.Base(filepath.Dir(cwd))
		if parent != "." && parent != "/" && parent != "" {
			name = parent
		}
	}
	if name == "." || name == "/" || name == "" {
		return "unknown"
	}
	return name
}
