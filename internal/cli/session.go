package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions
	Reset bool
}

type sessionResult struct {
	SessionID string `json:"session_id" yaml:"session_id"`
}

// NewSessionCommand creates the session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print the visitor session id, creating it on first use",
		Long: `Print the visitor session id, creating it on first use.

The id is stored in the local database and stamped on every page view.
With --reset the stored id is discarded and a new one is created.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, closeAll, err := opts.open()
			if err != nil {
				return err
			}
			defer closeAll()

			if opts.Reset {
				if err := exp.Sessions.Clear(); err != nil {
					return err
				}
			}

			sessionID := exp.SessionID()
			if sessionID == "" {
				return errors.New("session storage is unavailable")
			}

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Print(sessionResult{SessionID: sessionID}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, sessionID)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "discard the stored session id and create a new one")
	return cmd
}
