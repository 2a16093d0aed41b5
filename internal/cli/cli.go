// Package cli implements the wixpdb command-line interface.
//
// This package provides commands for inspecting build metadata containers,
// validating them against the bundled schemas, extracting embedded cabinet
// payloads, and rewriting composite containers as bare XML. The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - info: Summarize a container (version, tables, rows, cabinet)
//   - validate: Check schema conformance and the format version gate
//   - extract: Write the embedded cabinet payload to a file
//   - strip: Rewrite a composite container as bare XML
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so command helpers can log progress.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/installkit/wixpdb/pkg/buildinfo"
)

// appName is the application name used for directories and display.
const appName = "wixpdb"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the user's
// config file applied, if one exists.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
	cfg, err := LoadConfig(configPath())
	if err != nil {
		c.Logger.Warnf("Ignoring config file: %v", err)
	}
	c.Config = cfg
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "wixpdb inspects WiX build metadata containers",
		Long:         `wixpdb is a CLI tool for working with WiX pdb files: versioned XML containers of build output metadata, optionally carrying an embedded cabinet archive.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.infoCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.extractCommand())
	root.AddCommand(c.stripCommand())

	return root
}

// configPath returns the config file location using the XDG convention
// (~/.config/wixpdb/config.toml).
func configPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}
