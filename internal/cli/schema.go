package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/electrolyte/internal/materialize"
	"github.com/roach88/electrolyte/internal/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Describe the experiment variables",
		Long: `List the header variables by group with their kind, unit and whether
they are required, followed by the component categories.

Reads only the built-in schema; no database is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := materialize.ParseFormat(rootOpts.Format)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid format", err)
			}
			reg, err := schema.Default()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load schema", err)
			}
			return materialize.Write(cmd.OutOrStdout(), format, schemaTable(reg))
		},
	}
}

func schemaTable(reg *schema.Registry) materialize.Table {
	t := materialize.Table{Columns: []string{"Group", "Variable", "Kind", "Unit", "Required"}}
	for _, g := range reg.Groups() {
		for _, name := range g.Variables {
			v, ok := reg.Describe(name)
			if !ok {
				continue
			}
			t.Rows = append(t.Rows, []any{g.Name, name, string(v.Kind()), v.Unit(), yesNo(v.Required())})
		}
	}
	for _, c := range reg.Components() {
		t.Rows = append(t.Rows, []any{"Components", c.Category, string(c.Part), c.Unit, "no"})
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
