package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trailhook/trailhook/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "trailhook",
	Short: "Subagent lifecycle telemetry and correlation engine",
	Long: `Trailhook correlates subagent spawn and stop events dispatched by an
orchestrating session, verifies the work each agent's transcript
describes, and appends immutable telemetry records to a monthly
audit log.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/trailhook/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/trailhook")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TRAILHOOK")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TRAILHOOK_REGISTRY_STALE_AFTER_HOURS for registry.stale_after_hours
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
