package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/observability"

	_ "time/tzdata"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Administer the face attendance service",
	Long: `attendctl works directly against the configured record store: generate
sealing keys, print attendance statistics and rotate the template key.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	observability.SetupLoggerTo(os.Stderr, cfg.Logging.Level, "text")
	return cfg, nil
}
