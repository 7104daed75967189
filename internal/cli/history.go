package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Clear bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the local activity log, newest first",
		Long: `List the local activity log, newest first.

Only the most recent views are kept (history_limit in the configuration).
With --clear the local log is emptied; the remote view history is not touched.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, closeAll, err := opts.open()
			if err != nil {
				return err
			}
			defer closeAll()

			if opts.Clear {
				if err := exp.History.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "activity log cleared")
				return nil
			}

			records := exp.Records()
			entries := make([]historyEntry, 0, len(records))
			for _, record := range records {
				entries = append(entries, newHistoryEntry(record))
			}

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Print(entries, func(w io.Writer) error {
				if len(entries) == 0 {
					_, err := fmt.Fprintln(w, "no views recorded")
					return err
				}
				for _, entry := range entries {
					occurredAt := "-"
					if entry.OccurredAt != nil {
						occurredAt = entry.OccurredAt.Local().Format("2006-01-02 15:04:05")
					}
					if _, err := fmt.Fprintf(w, "%s  %s  %s\n", occurredAt, entry.Path, formatAttributes(entry.Attributes)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "empty the local activity log")
	return cmd
}

func formatAttributes(attributes map[string]any) string {
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, attributes[key]))
	}
	return strings.Join(pairs, " ")
}
