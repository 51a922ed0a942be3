package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/electrolyte/internal/materialize"
)

// NewChoicesCommand creates the choices command.
func NewChoicesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "choices",
		Short: "List filter categories and their options",
		Long: `List every filter category with the options it offers.

Header groups offer their filterable variables. Component categories offer
the component names present in stored experiments, so their options grow
as data is added.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := materialize.ParseFormat(rootOpts.Format)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid format", err)
			}

			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			choices, err := s.engine.Choices(cmd.Context())
			if err != nil {
				return classifyExit("choices failed", err)
			}

			table := materialize.Table{Columns: []string{"Category", "Option"}}
			for _, c := range choices {
				for _, o := range c.Options {
					table.Rows = append(table.Rows, []any{c.Title, o})
				}
			}
			return materialize.Write(cmd.OutOrStdout(), format, table)
		},
	}
}
