package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/electrolyte/internal/materialize"
	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored experiment",
		Long: `Print the header variables and components of one experiment.

The id is the 64 character content hash printed by add and import.

Exit codes:
  0 - Found
  1 - Malformed id
  2 - Not found, or storage error`,
		Args: cobra.ExactArgs(1),
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

			exp, err := s.engine.Get(cmd.Context(), args[0])
			if err != nil {
				return classifyExit("show failed", err)
			}
			return materialize.Write(cmd.OutOrStdout(), format, experimentTable(s.engine.Registry(), exp))
		},
	}
}

// experimentTable lays an experiment out as Field/Value rows: the id, each
// header variable in schema order, then components by category.
func experimentTable(reg *schema.Registry, exp record.Experiment) materialize.Table {
	t := materialize.Table{
		Columns: []string{"Field", "Value"},
		Rows:    [][]any{{reg.Header().ID, exp.ID}},
	}
	for _, v := range reg.Variables() {
		val, ok := exp.Fields[v.Name()]
		cell := ""
		if ok {
			if _, absent := val.(record.Absent); !absent {
				cell = materialize.FormatCell(v.Display(val))
			}
		}
		t.Rows = append(t.Rows, []any{v.Name(), cell})
	}
	for _, c := range reg.Components() {
		for _, comp := range exp.Components[c.Category] {
			t.Rows = append(t.Rows, []any{c.DisplayColumn(comp.Name), comp.Value})
		}
	}
	return t
}
