package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ImportSummary is the JSON payload of the import command.
type ImportSummary struct {
	BatchID  string   `json:"batch_id"`
	Applied  int      `json:"applied"`
	Replaced int      `json:"replaced"`
	IDs      []string `json:"ids"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk import experiments from a CSV file",
		Long: `Import every row of a CSV file in one transaction.

The file must carry a column for every schema variable; extra columns are
ignored. The whole file is validated before anything is written: the first
bad row rejects the file and reports its line number.

Exit codes:
  0 - All rows stored
  1 - File rejected (missing column, bad row, not a CSV file)
  2 - Command or storage error

Examples:
  electrolyte import runs.csv
  electrolyte import runs.csv --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importFile(rootOpts, args[0], cmd)
		},
	}
}

func importFile(opts *RootOptions, path string, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.ImportFile(cmd.Context(), path)
	if err != nil {
		return classifyExit("import failed", err)
	}

	summary := ImportSummary{
		BatchID:  res.BatchID,
		Applied:  len(res.Applied),
		Replaced: res.Replaced(),
		IDs:      make([]string, 0, len(res.Applied)),
	}
	for _, a := range res.Applied {
		summary.IDs = append(summary.IDs, a.ID)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(summary, fmt.Sprintf("batch %s: %d applied, %d replaced",
		summary.BatchID, summary.Applied, summary.Replaced))
}
