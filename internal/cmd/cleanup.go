package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailhook/trailhook/internal/config"
	"github.com/trailhook/trailhook/internal/registry"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict stale agents from the registry",
	Long: `Cleanup removes registry entries whose spawn time exceeds the staleness
threshold (registry.stale_after_hours, default 24h). The same sweep runs
automatically before every registration; this command exists for manual
housekeeping after crashes or long downtime.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	store := registry.NewStore(cfg.Paths.ResolveStateDir(cwd), nil)
	removed, err := store.CleanupStale(cfg.Registry.StaleAfter())
	if err != nil {
		return fmt.Errorf("failed to clean up registry: %w", err)
	}

	if removed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stale agents")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d stale agent(s)\n", removed)
	return nil
}
