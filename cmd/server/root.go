package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-hierarchy-api/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Task hierarchy API server",
	Long: `Serves the task hierarchy API: projects, nested subtasks and
LLM-assisted splitting of a task into new subtasks.

With no subcommand, starts the HTTP server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(commandContext(cmd))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (defaults to $CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
