package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/topiccrawl/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/topiccrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new topiccrawl configuration file",
		Long: `Initialize creates a new .topiccrawl configuration file in the current directory.

The generated file includes:
- The frontier store driver and its connection settings
- Crawl depth, concurrency and politeness settings
- The classifier endpoint and label set
- Commented examples for site-specific configurations

Examples:
  # Create .topiccrawl in current directory
  topiccrawl init

  # Create config file at a specific path
  topiccrawl init -o myconfig.yaml

  # Force overwrite existing file
  topiccrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/topiccrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold database passwords and API tokens.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - The frontier database (sqlite, postgres or mongo)")
	fmt.Fprintln(out, "  - The classifier endpoint and topics")
	fmt.Fprintln(out, "  - Crawl depth and URL patterns per site")

	return nil
}
