package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/trailhook/trailhook/internal/config"
	"github.com/trailhook/trailhook/internal/registry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show currently active subagents",
	Long: `Display the agents currently tracked in this project's registry.
With --watch the registry file is tailed and the view reprinted on
every change.`,
	RunE: runStatus,
}

var statusWatch bool

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "reprint on registry changes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	store := registry.NewStore(cfg.Paths.ResolveStateDir(cwd), nil)
	if err := printStatus(cmd, store); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}
	return watchStatus(cmd, store)
}

func printStatus(cmd *cobra.Command, store *registry.Store) error {
	state, err := store.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(state.Agents) == 0 {
		fmt.Fprintln(out, "No active agents")
		return nil
	}

	ids := make([]string, 0, len(state.Agents))
	for id := range state.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(out, "Active agents: %d\n\n", len(ids))
	for _, id := range ids {
		entry := state.Agents[id]
		fmt.Fprintf(out, "%s (%s)\n", entry.AgentID, entry.AgentType)
		fmt.Fprintf(out, "    Project: %s\n", entry.ProjectName)
		fmt.Fprintf(out, "    Started: %s (%s ago)\n",
			entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
			time.Since(entry.StartedAt).Round(time.Second))
		if entry.TaskDescription != "" {
			fmt.Fprintf(out, "    Task: %s\n", entry.TaskDescription)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// watchStatus reprints the registry on every write to its backing file.
// The watch is on the directory: the store replaces the file by rename,
// which would silently detach a watch on the file itself.
func watchStatus(cmd *cobra.Command, store *registry.Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := os.MkdirAll(filepath.Dir(store.StatePath()), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := watcher.Add(filepath.Dir(store.StatePath())); err != nil {
		return fmt.Errorf("failed to watch registry: %w", err)
	}

	target := filepath.Base(store.StatePath())
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), "---")
			if err := printStatus(cmd, store); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}
