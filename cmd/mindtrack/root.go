package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mindtrack/internal/config"
	"mindtrack/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "mindtrack",
	Short:         "Athlete wellness tracking server",
	Long:          "mindtrack records daily athlete check-ins, builds statistics over them and rewards consistency with XP, levels and achievements.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("cache", "", "Path to the local SQLite cache (overrides LOCAL_CACHE_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(breatheCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration, applies flag overrides and builds the logger.
// Configuration problems are logged and the defaults used.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, cfgErr := config.Load()
	if p, _ := cmd.Flags().GetString("cache"); p != "" {
		cfg.LocalCachePath = p
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	if cfgErr != nil {
		logger.Warn("configuration problems, using defaults for affected keys", zap.Error(cfgErr))
	}
	return cfg, logger, nil
}
