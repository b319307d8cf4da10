package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/local/manualrebuild/internal/config"
	"github.com/local/manualrebuild/internal/logger"
)

var (
	serverURL string
	logLevel  string
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Rebuild manual pages as HTML from page images",
	Long: `reconstruct sends page images to a running manualrebuild server and
writes the returned HTML, ready to open in a browser.

Examples:
  reconstruct page --image page15.png --pages 15-17
  reconstruct page --image page15.png --pages 15-17 --out page15.html
  reconstruct page --image page15.png --pages 15-17 --publish`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.FromEnv()
		return logger.Init(logger.Options{
			Service: "reconstruct-cli",
			Level:   logLevel,
			Pretty:  true,
			Stderr:  true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn, error",
	)

	rootCmd.AddCommand(pageCmd)
}
