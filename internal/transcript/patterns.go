package transcript

import (
	"regexp"
	"strings"

	"github.com/trailhook/trailhook/internal/util"
)

// Fallback patterns for lines that are not structured records. These mirror
// the phrasing agents use when narrating their work in plain text.
var (
	// The invocation-tag pattern goes first: it is the most specific, and
	// tag lines often also contain words like "calling".
	toolUsagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<[a-z_:]*invoke\s+[^>]*name="([^"]+)"`),
		regexp.MustCompile(`(?i)\busing\s+(?:the\s+)?(\w+)\s+tool\b`),
		regexp.MustCompile(`(?i)\bcalling\s+(\w+)\b`),
	}

	fileModPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:writing|editing|creating|modifying)\s+['"]?([\w./~-]+\.\w+)`),
		regexp.MustCompile(`(?i)\b(?:file_path|path)\s*[=:]\s*['"]?([\w./~-]+)`),
	}

	errorSubstrings = []string{"error:", "failed:", "exception"}
)

// scanFreeText applies the pattern-based fallback rules to one plain-text
// line.
func scanFreeText(line string, acc *accumulator) {
	for _, pattern := range toolUsagePatterns {
		if m := pattern.FindStringSubmatch(line); len(m) >= 2 {
			acc.toolsUsed = append(acc.toolsUsed, m[1])
			break
		}
	}

	for _, pattern := range fileModPatterns {
		if m := pattern.FindStringSubmatch(line); len(m) >= 2 {
			acc.filesModified = append(acc.filesModified, m[1])
			break
		}
	}

	lower := strings.ToLower(line)
	for _, sub := range errorSubstrings {
		if strings.Contains(lower, sub) {
			acc.errorCount++
			break
		}
	}

	for _, word := range completionWords {
		if strings.Contains(lower, word) {
			acc.successIndicators = append(acc.successIndicators, util.Truncate(line, maxIndicatorLen))
			break
		}
	}
}
