package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Set []string // Var=value pairs
}

// AddResult is the JSON payload of the add command.
type AddResult struct {
	ID       string `json:"id"`
	Replaced bool   `json:"replaced"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit one experiment",
		Long: `Validate one experiment and store it.

Each --set names a schema variable and its raw value, exactly as it would be
typed into the entry form. The experiment's id is derived from its content:
submitting the same values again replaces the stored copy.

Exit codes:
  0 - Stored
  1 - Validation failed
  2 - Command or storage error

Examples:
  electrolyte add -s CompositionID='DMC_EMC|50_50|LiPF6|1' -s Date=1/15/2024 -s Trial=1
  electrolyte add -s CompositionID='EC|100||' -s Date=2024-03-01 -s Trial=2 -s Density=1.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return addExperiment(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Set, "set", "s", nil, "variable assignment Var=value (repeatable)")

	return cmd
}

func addExperiment(opts *AddOptions, cmd *cobra.Command) error {
	raw, err := parseAssignments(opts.Set)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Submit(cmd.Context(), raw)
	if err != nil {
		return classifyExit("add failed", err)
	}

	verb := "stored"
	if res.Replaced {
		verb = "replaced"
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(AddResult{ID: res.ID, Replaced: res.Replaced}, verb+" "+res.ID)
}

// parseAssignments turns Var=value pairs into raw form input. Values may
// contain '='; a later assignment of the same variable wins.
func parseAssignments(pairs []string) (map[string]string, error) {
	raw := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("invalid --set %q: want Var=value", p))
		}
		raw[strings.TrimSpace(name)] = value
	}
	return raw, nil
}
