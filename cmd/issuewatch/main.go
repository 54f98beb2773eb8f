package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/issuewatch/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "issuewatch",
	Short:         "issuewatch - new issue notifier",
	Long:          `issuewatch polls an issue tracker for newly created issues and posts a message for each one to a chat channel.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(jqlCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
