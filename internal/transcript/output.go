package transcript

import (
	"regexp"
	"strings"

	"github.com/trailhook/trailhook/internal/util"
)

// assistantLabelRe matches a labelled free-text assistant turn. The block
// runs until a blank line or the next turn label.
var assistantLabelRe = regexp.MustCompile(`(?im)^assistant:[ \t]*(.*)$`)

var turnLabelRe = regexp.MustCompile(`(?im)^(?:user|human|assistant|system):`)

// extractFinalOutput locates the last assistant-authored message in the
// raw content. Two encodings are supported: structured records carrying an
// assistant role, and a plain-text "Assistant:" label convention. Only the
// last match (by position in the content) is kept, truncated to
// maxFinalOutputLen.
func extractFinalOutput(content string) string {
	structured, structuredPos := lastStructuredAssistantMessage(content)
	labelled, labelledPos := lastLabelledAssistantMessage(content)

	out := structured
	if labelledPos > structuredPos {
		out = labelled
	}
	return util.Truncate(strings.TrimSpace(out), maxFinalOutputLen)
}

// lastStructuredAssistantMessage scans every structured line for an
// assistant-role record and returns the text of the last one, along with
// the byte offset where it was found (-1 if none).
func lastStructuredAssistantMessage(content string) (string, int) {
	text := ""
	pos := -1

	offset := 0
	for _, line := range strings.Split(content, "\n") {
		lineStart := offset
		offset += len(line) + 1

		trimmed := strings.TrimSpace(line)
		rec, ok := parseRecord(trimmed)
		if !ok {
			continue
		}
		if !isAssistantRecord(rec) {
			continue
		}
		if msg := assistantText(rec); msg != "" {
			text = msg
			pos = lineStart
		}
	}
	return text, pos
}

// isAssistantRecord reports whether a record is assistant-authored, via a
// role field or a Claude-style type marker.
func isAssistantRecord(rec map[string]any) bool {
	if role, _ := rec["role"].(string); role == "assistant" {
		return true
	}
	if typ, _ := rec["type"].(string); typ == "assistant" {
		return true
	}
	if msg, ok := rec["message"].(map[string]any); ok {
		if role, _ := msg["role"].(string); role == "assistant" {
			return true
		}
	}
	return false
}

// assistantText pulls the message text from an assistant record: either a
// plain string content field or the concatenated text blocks of a nested
// content array.
func assistantText(rec map[string]any) string {
	if text := textContent(rec); text != "" {
		return text
	}

	blocks := contentBlocks(rec)
	if blocks == nil {
		if inner, ok := rec["content"].([]any); ok {
			blocks = inner
		}
	}

	var parts []string
	for _, block := range blocks {
		b, ok := block.(map[string]any)
		if !ok {
			continue
		}
		if typ, _ := b["type"].(string); typ != "" && typ != "text" {
			continue
		}
		if text, ok := b["text"].(string); ok && text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// lastLabelledAssistantMessage finds the last "Assistant: ..." block in
// free text. The block is terminated by a blank line or the next turn
// label.
func lastLabelledAssistantMessage(content string) (string, int) {
	matches := assistantLabelRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return "", -1
	}

	last := matches[len(matches)-1]
	start := last[2] // start of the captured text after the label
	rest := content[start:]

	end := len(rest)
	if idx := strings.Index(rest, "\n\n"); idx >= 0 {
		end = idx
	}
	if loc := turnLabelRe.FindStringIndex(rest); loc != nil && loc[0] < end {
		end = loc[0]
	}

	return strings.TrimSpace(rest[:end]), last[0]
}
