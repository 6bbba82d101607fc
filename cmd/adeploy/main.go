package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"adeploy/internal/app"
	"adeploy/internal/config"

	"github.com/spf13/cobra"
)

var agentType string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adeploy CONFIG_PATH",
	Short: "Declarative file and database deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if agentType != "" && agentType != "ai-deploy" {
			return fmt.Errorf("unsupported agent type %q", agentType)
		}

		configPath := args[0]

		cfg, err := config.ReadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		a, err := app.Build(cfg, configPath)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVar(&agentType, "agent-type", "ai-deploy", "agent implementation to run the deployment with")
}
