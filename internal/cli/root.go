package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/electrolyte/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "text" | "json" | "csv"
	Database    string
	Driver      string
	Config      string
	PushGateway string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "csv"}

// NewRootCommand creates the root command for the electrolyte CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "electrolyte",
		Short: "Electrolyte experiment store",
		Long: `Store electrolyte experiments and query them by composition and measurement.

Each experiment is a set of measurements plus a composition of solvents and
salts. Experiments are identified by a hash of their content, so submitting
the same data twice stores it once.

Flags may also be set through ELECTROLYTE_<FLAG> environment variables or a
--config file (YAML or TOML); command line flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			configureLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json|csv)")
	flags.StringVar(&opts.Database, "db", "electrolyte.db", "database path (sqlite3) or connection string (pgx)")
	flags.StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|pgx)")
	flags.StringVarP(&opts.Config, "config", "c", "", "configuration file to read from")
	flags.StringVar(&opts.PushGateway, "push-gateway", "", "Prometheus Pushgateway URL to push metrics to")

	// Add subcommands
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewChoicesCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
