package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/explorer"
)

// LogFile is the name of the log file written inside the config dir.
const LogFile = "explorer.log"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	APIURL    string
	Format    string // "text" | "json" | "yaml"
	Verbose   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command of the explorer CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "explorer",
		Short: "Browse the product catalog from the terminal",
		Long: `Browse the product catalog served by the remote catalog service.

Every page view is recorded in a local activity log tied to a persistent
session and mirrored to the remote view history. Catalog data can be
refreshed on demand from the browser or with the refresh command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default is the explorer folder under the user config dir)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "base URL of the catalog service, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "write debug logs to the log file")

	cmd.AddCommand(NewBrowseCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))

	return cmd
}

// configDir returns the configuration directory selected by the flags.
func (opts *RootOptions) configDir() (string, error) {
	if opts.ConfigDir != "" {
		return opts.ConfigDir, nil
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir : %w", err)
	}
	return filepath.Join(userConfigDir, "explorer"), nil
}

// open creates an Explorer for the config dir. The logger writes to LogFile
// so it never draws over the terminal UI. The returned function closes both.
func (opts *RootOptions) open() (*explorer.Explorer, func() error, error) {
	dir, err := opts.configDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating config dir %s: %w", dir, err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file : %w", err)
	}

	level := &slog.LevelVar{}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))

	options := []func(*explorer.Explorer) error{
		explorer.WithLogger(logger),
		explorer.WithConfigDir(dir),
	}
	if opts.APIURL != "" {
		options = append(options, explorer.WithAPIURL(opts.APIURL))
	}

	exp, err := explorer.New(options...)
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	level.Set(parseLevel(exp.Config.LogLevel))
	if opts.Verbose {
		level.Set(slog.LevelDebug)
	}

	closeAll := func() error {
		return errors.Join(exp.Close(), logFile.Close())
	}
	return exp, closeAll, nil
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}
