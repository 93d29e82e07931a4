package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/havoc/internal/engine"
)

// ScenarioInfo is one entry in the list command's output.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available chaos scenarios",
		Long: `List every registered chaos scenario with a short description.

Example:
  havoc list
  havoc list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listScenarios(rootOpts, cmd)
		},
	}

	return cmd
}

func listScenarios(opts *RootOptions, cmd *cobra.Command) error {
	eng := engine.New(nil, nil)
	engine.RegisterBuiltins(eng)

	descriptions := eng.Descriptions()
	infos := make([]ScenarioInfo, 0, len(descriptions))
	for _, name := range eng.List() {
		infos = append(infos, ScenarioInfo{Name: name, Description: descriptions[name]})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success(infos)
}
