package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tfkr-ae/explorer/ui"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive catalog browser",
		Long: `Open the interactive catalog browser.

Pages: categories, category (subcategories and products), product
(details and reviews) and recently viewed (h). Press r to refresh the
data shown on the current page and R to retry after a failed load.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, closeAll, err := rootOpts.open()
			if err != nil {
				return err
			}
			defer closeAll()

			program := tea.NewProgram(ui.NewModel(exp),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = program.Run()
			return err
		},
	}
}
