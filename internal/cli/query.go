package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/materialize"
)

// QueryOptions holds flags for the query and explain commands.
type QueryOptions struct {
	*RootOptions
	Filter     string // filter file (YAML)
	AllColumns bool   // show every header variable, not only the filtered ones
	Out        string // write the table to a file instead of stdout
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter stored experiments",
		Long: `Run a filter against the store and print the matching experiments.

The filter file maps each category to an optional combinator (and|or) and
the variables or components it selects, each with a [min, max] range:

  Solvents:
    combinator: and
    DMC: [10, 60]
    EMC: {min: 40}
  Dependent variables:
    Density: [null, null]

Selections within a category are combined with the category's combinator
(or by default); categories are always combined with and. Without --filter
every experiment is listed.

Exit codes:
  0 - Success
  2 - Command or storage error
  3 - Filter refused (unknown category or variable)

Examples:
  electrolyte query --filter dmc.yaml
  electrolyte query --filter dmc.yaml --format csv --out dmc.csv
  electrolyte query --all-columns --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	addQueryFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the result to this file")

	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "filter file (YAML)")
	cmd.Flags().BoolVar(&opts.AllColumns, "all-columns", false, "show every header variable")
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	format, err := materialize.ParseFormat(opts.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid format", err)
	}
	model, err := loadFilter(opts.Filter)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	table, err := s.engine.Query(cmd.Context(), model, compiler.Options{AllColumns: opts.AllColumns})
	if err != nil {
		return classifyExit("query failed", err)
	}

	if opts.Out == "" {
		if err := materialize.Write(cmd.OutOrStdout(), format, table); err != nil {
			return WrapExitError(ExitCommandError, "failed to write result", err)
		}
		return nil
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	if err := writeAndClose(f, format, table); err != nil {
		return WrapExitError(ExitCommandError, "failed to write result", err)
	}
	slog.Info("result written", "path", opts.Out, "rows", table.Len())
	return nil
}

// writeAndClose writes t to wc and closes it. A failed close is reported:
// buffered data may not have reached the file.
func writeAndClose(wc io.WriteCloser, format materialize.Format, t materialize.Table) error {
	if err := materialize.Write(wc, format, t); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the SQL a filter compiles to",
		Long: `Compile a filter for the configured driver and print the SQL and its
parameters without running it.

Examples:
  electrolyte explain --filter dmc.yaml
  electrolyte explain --filter dmc.yaml --driver pgx --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, cmd)
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}

func runExplain(opts *QueryOptions, cmd *cobra.Command) error {
	model, err := loadFilter(opts.Filter)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	exp, err := s.engine.Explain(model, compiler.Options{AllColumns: opts.AllColumns})
	if err != nil {
		return classifyExit("explain failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(exp, fmt.Sprintf("%s\n-- params: %v", exp.SQL, exp.Params))
}
