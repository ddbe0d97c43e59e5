package main

import (
	"fmt"
	"os"

	"github.com/kidchat/kidchat-api/cmd/admin/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "kidchat-admin",
		Short: "Administration tool for KidChat API",
		Long:  "CLI tool for inspecting the content filter, sessions, and parent alerts",
	}

	rootCmd.AddCommand(commands.NewClassifyCmd())
	rootCmd.AddCommand(commands.NewSessionsCmd())
	rootCmd.AddCommand(commands.NewAlertsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
