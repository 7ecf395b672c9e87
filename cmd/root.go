package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "mapviz",
	Short:        "Density heatmap and word-cloud tile server",
	Long:         "Renders density heatmap tiles as PNG and word-cloud tiles as HTML fragments, and serves them with layer metadata and menu state.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyLogFlags(cmd, &c.Log)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.L().Debug("config loaded", zap.String("command", cmd.Name()), zap.String("log_level", cfg.Log.Level))
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error (default from config)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or console (default from config)")
}

// applyLogFlags overrides the log config with any log flags given.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		lc.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		lc.Format = format
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
