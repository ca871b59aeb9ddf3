package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailhook/trailhook/internal/config"
	"github.com/trailhook/trailhook/internal/hooks"
	"github.com/trailhook/trailhook/internal/logging"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Process lifecycle events from the hook dispatcher",
	Long: `Hook subcommands are wired into the orchestrating session's hook
dispatch: each reads one event JSON payload from stdin and prints a
response JSON object to stdout. They always exit zero — telemetry
must never block the session.`,
}

var subagentStartCmd = &cobra.Command{
	Use:   "subagent-start",
	Short: "Register a spawned subagent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, hookSpawn)
	},
}

var subagentStopCmd = &cobra.Command{
	Use:   "subagent-stop",
	Short: "Correlate a stopped subagent and write telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, hookStop)
	},
}

type hookKind int

const (
	hookSpawn hookKind = iota
	hookStop
)

func init() {
	hookCmd.AddCommand(subagentStartCmd)
	hookCmd.AddCommand(subagentStopCmd)
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, kind hookKind) error {
	payload, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		payload = nil
	}

	resp := dispatch(cmd, kind, payload)

	out, err := json.Marshal(resp)
	if err != nil {
		out = []byte(`{"continue":true}`)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func dispatch(cmd *cobra.Command, kind hookKind, payload []byte) *hooks.Response {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	logger := hookLogger(cfg, payload)
	defer logger.Close()

	orch, err := hooks.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build orchestrator", "error", err)
		return &hooks.Response{Continue: true}
	}

	if kind == hookSpawn {
		return orch.HandleSpawn(cmd.Context(), payload)
	}
	return orch.HandleStop(cmd.Context(), payload)
}

// hookLogger writes to the event's project state dir when the payload
// names a cwd, falling back to the invoking process's directory.
func hookLogger(cfg *config.Config, payload []byte) *logging.Logger {
	cwd := ""
	if event, err := hooks.ParseEvent(payload); err == nil {
		cwd = event.Cwd
	}
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}

	logger, err := logging.NewLogger(cfg.Paths.ResolveStateDir(cwd), cfg.Logging.Level)
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}
