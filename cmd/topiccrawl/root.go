package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for topiccrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topiccrawl",
		Short: "Resumable web crawler with topic classification",
		Long: `topiccrawl crawls websites breadth-first up to a maximum link depth and
labels the text of every page with a topic.

Every discovered URL is recorded in a frontier store (SQLite by default,
PostgreSQL or MongoDB optionally) before it is fetched. If a crawl is
interrupted, running the same command again resumes from the URLs that were
still queued.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("config", "",
		"Configuration file path (default: .topiccrawl in current or home directory, then config.yaml in the XDG config directory)")
	cmd.PersistentFlags().String("store", "",
		"Frontier store driver: sqlite, postgres or mongo (default: sqlite)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the SQLite frontier database (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewResultsCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewTopicsCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
