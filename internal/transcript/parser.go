// Package transcript extracts objective facts from a subagent's raw
// execution log. The log format is not guaranteed: it may be structured
// JSONL, a mix of structured and free-text lines, or entirely free text.
// Each line is fed through an ordered chain of strategies (structured
// first, pattern-based fallback second) and one bad line never aborts
// parsing of the rest.
package transcript

import (
	"os"
	"strings"

	"github.com/trailhook/trailhook/internal/logging"
	"github.com/trailhook/trailhook/internal/util"
)

const (
	// maxIndicatorLen caps each success-indicator snippet.
	maxIndicatorLen = 100

	// maxFinalOutputLen caps the extracted final output.
	maxFinalOutputLen = 500
)

// Parsed holds the facts mined from one transcript. It is recomputed on
// every parse and never persisted directly.
type Parsed struct {
	// FilesModified are the deduplicated paths touched by write/edit
	// style tools.
	FilesModified []string

	// ToolsUsed are the deduplicated tool names seen in the log.
	ToolsUsed []string

	// ErrorCount is the number of error events or error-looking lines.
	ErrorCount int

	// SuccessIndicators are short snippets containing completion words.
	// Note these are self-reported by the agent, not verified outcomes.
	SuccessIndicators []string

	// FinalOutput is the last assistant-authored message, truncated.
	FinalOutput string
}

// ParseFile reads and parses the transcript at path. A missing or
// unreadable file yields the zero-value result rather than an error:
// partial telemetry beats none.
func ParseFile(path string, logger *logging.Logger) *Parsed {
	if logger == nil {
		logger = logging.NopLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("transcript unreadable, returning empty result",
			"path", path, "error", err.Error())
		return emptyParsed()
	}
	return Parse(string(data), logger)
}

// Parse extracts facts from raw transcript content.
func Parse(content string, logger *logging.Logger) *Parsed {
	if logger == nil {
		logger = logging.NopLogger()
	}

	acc := &accumulator{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if rec, ok := parseRecord(line); ok {
			interpretRecord(rec, acc)
			continue
		}
		scanFreeText(line, acc)
	}

	return &Parsed{
		FilesModified:     util.Dedupe(acc.filesModified),
		ToolsUsed:         util.Dedupe(acc.toolsUsed),
		ErrorCount:        acc.errorCount,
		SuccessIndicators: util.Dedupe(acc.successIndicators),
		FinalOutput:       extractFinalOutput(content),
	}
}

func emptyParsed() *Parsed {
	return &Parsed{
		FilesModified:     []string{},
		ToolsUsed:         []string{},
		SuccessIndicators: []string{},
	}
}

// accumulator collects raw (possibly duplicated) facts while scanning.
type accumulator struct {
	filesModified     []string
	toolsUsed         []string
	errorCount        int
	successIndicators []string
}
