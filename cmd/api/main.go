package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/questmaster/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "questmaster",
		Short: "Quest Master API Server",
		Long:  `Quest Master is a gamified to-do backend with deadline reminders, recurring task rollover and push notification delivery.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
