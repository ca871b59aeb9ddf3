package transcript

import (
	"encoding/json"
	"strings"

	"github.com/trailhook/trailhook/internal/util"
)

// fileModifyingTools are the tool-name aliases that write or edit files.
// Names are compared lowercased.
var fileModifyingTools = map[string]bool{
	"write":              true,
	"edit":               true,
	"multiedit":          true,
	"notebookedit":       true,
	"write_file":         true,
	"edit_file":          true,
	"create_file":        true,
	"str_replace_editor": true,
}

// completionWords is the small fixed vocabulary that marks a record as a
// success indicator when present in its text content.
var completionWords = []string{"successfully", "completed", "done"}

// parseRecord attempts to interpret a line as a structured JSON record.
func parseRecord(line string) (map[string]any, bool) {
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, false
	}
	return rec, true
}

// interpretRecord extracts facts from one structured record. Claude-style
// wrapper records nest the interesting blocks under message.content, so
// those are walked as records too.
func interpretRecord(rec map[string]any, acc *accumulator) {
	if blocks := contentBlocks(rec); blocks != nil {
		for _, block := range blocks {
			if inner, ok := block.(map[string]any); ok {
				interpretRecord(inner, acc)
			}
		}
	}

	if name := toolName(rec); name != "" {
		acc.toolsUsed = append(acc.toolsUsed, name)
		if fileModifyingTools[strings.ToLower(name)] {
			if path := filePathFromInput(rec); path != "" {
				acc.filesModified = append(acc.filesModified, path)
			}
		}
	}

	if isErrorRecord(rec) {
		acc.errorCount++
	}

	if text := textContent(rec); text != "" {
		lower := strings.ToLower(text)
		for _, word := range completionWords {
			if strings.Contains(lower, word) {
				acc.successIndicators = append(acc.successIndicators, util.Truncate(text, maxIndicatorLen))
				break
			}
		}
	}
}

// contentBlocks returns the nested message.content array, if present.
func contentBlocks(rec map[string]any) []any {
	msg, ok := rec["message"].(map[string]any)
	if !ok {
		return nil
	}
	blocks, ok := msg["content"].([]any)
	if !ok {
		return nil
	}
	return blocks
}

// toolName returns the tool name if the record is a tool-use event:
// a "tool_use" type marker, or an explicit name/tool_name field alongside
// an input object.
func toolName(rec map[string]any) string {
	typ, _ := rec["type"].(string)

	if typ == "tool_use" {
		if name, ok := rec["name"].(string); ok {
			return name
		}
		if name, ok := rec["tool_name"].(string); ok {
			return name
		}
		return ""
	}

	if name, ok := rec["tool_name"].(string); ok {
		return name
	}
	if name, ok := rec["tool"].(string); ok {
		return name
	}
	return ""
}

// filePathFromInput extracts the target file of a file-modifying tool from
// the nested input object, checking file_path, then path, then file, in
// that priority order. Only string values are accepted.
func filePathFromInput(rec map[string]any) string {
	input, ok := rec["input"].(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"file_path", "path", "file"} {
		if v, ok := input[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// isErrorRecord reports whether the record carries an explicit error
// marker or type.
func isErrorRecord(rec map[string]any) bool {
	if typ, _ := rec["type"].(string); typ == "error" {
		return true
	}
	if isErr, ok := rec["is_error"].(bool); ok && isErr {
		return true
	}
	if _, ok := rec["error"]; ok {
		return true
	}
	return false
}

// textContent pulls human-readable text out of a record, checking the
// content-bearing fields a heterogeneous log may use.
func textContent(rec map[string]any) string {
	for _, key := range []string{"text", "content", "output", "result", "message"} {
		if v, ok := rec[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
