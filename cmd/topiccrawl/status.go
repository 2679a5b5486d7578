package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/topiccrawl/internal/classifier"
	"github.com/nao1215/topiccrawl/internal/frontier"
	"github.com/nao1215/topiccrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [base-url]",
		Short: "Show the crawl status of a base URL",
		Long: `Status reports whether the crawl of a base URL has not started, was
interrupted (URLs are still queued) or has completed, together with the
number of recorded and queued URLs.

Without an argument, the status of every base URL in the store is listed.

Examples:
  topiccrawl status https://example.com
  topiccrawl status`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCmd,
	}
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	slog.SetDefault(setupLogger(cfg))

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	baseURLs := args
	if len(baseURLs) == 0 {
		if baseURLs, err = store.BaseURLs(ctx); err != nil {
			return fmt.Errorf("failed to list base URLs: %w", err)
		}
		if len(baseURLs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No crawls recorded.")
			return nil
		}
	}

	out := cmd.OutOrStdout()
	for i, baseURL := range baseURLs {
		summary, err := frontier.Summary(ctx, store, baseURL)
		if err != nil {
			return fmt.Errorf("failed to load status of %s: %w", baseURL, err)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Status for %s: %s\n", baseURL, summary.Status)
		fmt.Fprintf(out, "Total URLs found: %d\n", summary.Total)
		fmt.Fprintf(out, "Queued URLs remaining: %d\n", summary.Queued)
	}
	return nil
}

// NewResultsCmd creates the results command.
func NewResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results <base-url>",
		Short: "Show the crawl results of a base URL",
		Long: `Results prints every URL recorded for a base URL with its depth, status,
topic and title.

Examples:
  # Print a table
  topiccrawl results https://example.com

  # Write a Markdown report
  topiccrawl results --format markdown -o report.md https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runResultsCmd,
	}

	cmd.Flags().String("format", string(report.FormatTable),
		"Output format: table, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write the results to the specified file path (creates directories if needed)")

	return cmd
}

// runResultsCmd executes the results command.
func runResultsCmd(cmd *cobra.Command, args []string) error {
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	slog.SetDefault(setupLogger(cfg))

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := frontier.Summary(ctx, store, args[0])
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	err = writeOutput(output, cmd.OutOrStdout(), func(w io.Writer) error {
		writer, err := report.NewWriter(format, w)
		if err != nil {
			return err
		}
		_, err = writer.Write(summary)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", output)
	}
	return nil
}

// NewResetCmd creates the reset command.
func NewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <base-url>",
		Short: "Delete every stored URL of a base URL",
		Long: `Reset removes the frontier of a base URL, including completed pages, so
that the next crawl starts from an empty store.

Example:
  topiccrawl reset https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runResetCmd,
	}
}

// runResetCmd executes the reset command.
func runResetCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	slog.SetDefault(setupLogger(cfg))

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Purge(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to reset %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed crawl data for %s\n", args[0])
	return nil
}

// NewTopicsCmd creates the topics command.
func NewTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List the topics pages are classified into",
		Long: `Topics prints the label set of the configured classifier, one per line.
The labels come from the classifier.topics setting of the configuration
file, or the built-in defaults.`,
		Args: cobra.NoArgs,
		RunE: runTopicsCmd,
	}
}

// runTopicsCmd executes the topics command.
func runTopicsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	c, err := classifier.New(cfg.ClassifierConfig())
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	setter, ok := c.(classifier.TopicSetter)
	if !ok {
		return classifier.ErrTopicsNotSupported
	}

	for _, topic := range setter.Topics() {
		fmt.Fprintln(cmd.OutOrStdout(), topic)
	}
	return nil
}
