package hooks

// Response is what a hook entry point hands back to the dispatching
// runtime. Continue is always true: this engine informs the session, it
// never blocks it.
type Response struct {
	Continue bool    `json:"continue"`
	Message  string  `json:"message,omitempty"`
	Output   *Output `json:"output,omitempty"`
}

// Output is the structured payload attached to a stop response.
type Output struct {
	Validation       *ValidationSummary `json:"validation,omitempty"`
	Tests            *TestSummary       `json:"tests,omitempty"`
	TelemetryWritten bool               `json:"telemetry_written"`
	DurationMs       int64              `json:"duration_ms,omitempty"`
}

// ValidationSummary mirrors the Output Validator result for the
// dispatcher.
type ValidationSummary struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// TestSummary mirrors the Test Verifier result for the dispatcher.
type TestSummary struct {
	Ran     bool   `json:"ran"`
	Passed  bool   `json:"passed"`
	Summary string `json:"summary,omitempty"`
}

func continueResponse() *Response {
	return &Response{Continue: true}
}
