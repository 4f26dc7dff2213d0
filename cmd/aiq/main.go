package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aiqhub/aiq/engine/infra/server"
	"github.com/aiqhub/aiq/pkg/config"
	"github.com/aiqhub/aiq/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aiq",
		Short: "AI Act questionnaire engine",
		Long:  "A YAML-driven questionnaire server that classifies AI systems against the EU AI Act.",
	}
	rootCmd.AddCommand(serveCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the questionnaire HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Best effort; configuration still works from the process env.
			_ = godotenv.Load()
			cfg, err := config.Load(os.Getenv)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd.Flags(), cfg)
			log, err := logger.Setup(cfg.Log.Level, cfg.Log.File, cfg.Log.MaxBytes, cfg.Log.BackupCount)
			if err != nil {
				return err
			}
			srv, err := server.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("host", "", "Bind address (overrides SERVER_HOST)")
	cmd.Flags().Int("port", 0, "Bind port (overrides SERVER_PORT)")
	cmd.Flags().String("data-dir", "", "Questionnaire resources directory (overrides DATA_DIR)")
	return cmd
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if host, err := flags.GetString("host"); err == nil && host != "" {
		cfg.Server.Host = host
	}
	if port, err := flags.GetInt("port"); err == nil && port != 0 {
		cfg.Server.Port = port
	}
	if dataDir, err := flags.GetString("data-dir"); err == nil && dataDir != "" {
		cfg.Engine.DataDir = dataDir
	}
}
