package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the experiment tables",
		Long: `Create the header and component tables the schema describes.

Migrations are additive: header columns missing from an existing database
are added, nothing is dropped. Every command migrates on open, so migrate
is only needed to prepare a database ahead of time.

Examples:
  electrolyte migrate --db lab.db
  electrolyte migrate --driver pgx --db postgres://localhost/lab`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"driver": rootOpts.Driver},
				fmt.Sprintf("migrated %s database", rootOpts.Driver))
		},
	}
}
