package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	Limit int
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List persisted diagnostics, newest first",
		Long: `List persisted diagnostics, newest first.

Diagnostics are recorded when a background path absorbs an error: a view
that could not be sent to the remote history, a failed fetch or a failed
refresh.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, closeAll, err := opts.open()
			if err != nil {
				return err
			}
			defer closeAll()

			logs, err := exp.Logs(opts.Limit)
			if err != nil {
				return err
			}

			entries := make([]logEntry, 0, len(logs))
			for _, log := range logs {
				entries = append(entries, newLogEntry(log))
			}

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Print(entries, func(w io.Writer) error {
				if len(entries) == 0 {
					_, err := fmt.Fprintln(w, "no diagnostics recorded")
					return err
				}
				for _, entry := range entries {
					line := fmt.Sprintf("%s  %-5s  %s", entry.Timestamp.Local().Format("2006-01-02 15:04:05"), entry.Level, entry.Message)
					if entry.Resource != "" {
						line += "  resource=" + entry.Resource
					}
					if reason, ok := entry.Context["error"]; ok {
						line += fmt.Sprintf("  error=%v", reason)
					}
					if _, err := fmt.Fprintln(w, line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "number of entries to show, 0 for all")
	return cmd
}
