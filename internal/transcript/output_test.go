package transcript

import (
	"strings"
	"testing"
)

func TestFinalOutputFromStructuredRecords(t *testing.T) {
	content := strings.Join([]string{
		`{"role": "assistant", "content": "first draft"}`,
		`{"role": "user", "content": "please revise"}`,
		`{"role": "assistant", "content": "final answer"}`,
	}, "\n")

	parsed := Parse(content, nil)
	if parsed.FinalOutput != "final answer" {
		t.Errorf("FinalOutput = %q, want %q", parsed.FinalOutput, "final answer")
	}
}

func TestFinalOutputFromClaudeWrapperRecord(t *testing.T) {
	content := `{"type": "assistant", "message": {"role": "assistant", "content": [{"type": "text", "text": "all wired up"}]}}`

	parsed := Parse(content, nil)
	if parsed.FinalOutput != "all wired up" {
		t.Errorf("FinalOutput = %q, want %q", parsed.FinalOutput, "all wired up")
	}
}

func TestFinalOutputFromLabelledBlock(t *testing.T) {
	content := strings.Join([]string{
		"Assistant: first reply",
		"",
		"User: keep going",
		"Assistant: here is the result",
		"with a second line",
		"",
		"trailing notes",
	}, "\n")

	parsed := Parse(content, nil)
	want := "here is the result\nwith a second line"
	if parsed.FinalOutput != want {
		t.Errorf("FinalOutput = %q, want %q", parsed.FinalOutput, want)
	}
}

func TestFinalOutputLabelledBlockEndsAtTurnBoundary(t *testing.T) {
	content := strings.Join([]string{
		"Assistant: the answer",
		"User: thanks",
	}, "\n")

	parsed := Parse(content, nil)
	if parsed.FinalOutput != "the answer" {
		t.Errorf("FinalOutput = %q, want %q", parsed.FinalOutput, "the answer")
	}
}

func TestFinalOutputLastEncodingWins(t *testing.T) {
	content := strings.Join([]string{
		`{"role": "assistant", "content": "structured reply"}`,
		"Assistant: labelled reply came later",
	}, "\n")

	parsed := Parse(content, nil)
	if parsed.FinalOutput != "labelled reply came later" {
		t.Errorf("FinalOutput = %q, want the later labelled block", parsed.FinalOutput)
	}
}

func TestFinalOutputTruncationBoundary(t *testing.T) {
	exact := strings.Repeat("a", maxFinalOutputLen)
	overflow := strings.Repeat("b", maxFinalOutputLen+1)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"exactly max untouched", exact, exact},
		{"one over max truncated", overflow, overflow[:maxFinalOutputLen] + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := Parse(`{"role": "assistant", "content": "`+tt.text+`"}`, nil)
			if parsed.FinalOutput != tt.want {
				t.Errorf("FinalOutput length = %d, want length %d",
					len(parsed.FinalOutput), len(tt.want))
			}
		})
	}
}

func TestFinalOutputEmptyWhenNoAssistantMessage(t *testing.T) {
	parsed := Parse("just some notes\nerror: nope", nil)
	if parsed.FinalOutput != "" {
		t.Errorf("FinalOutput = %q, want empty", parsed.FinalOutput)
	}
}
