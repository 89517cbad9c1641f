package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/threadgate/internal/harness"
)

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "Run a YAML scenario against an in-memory store",
		Long: `Load a scenario file, replay its turns through a fresh in-memory
gateway, and print the resulting timeline. Scenario runs are
deterministic: the same file always yields the same digests and seqs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], cmd)
		},
	}
}

func runScenario(opts *RootOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("running scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	result, err := harness.Run(cmd.Context(), scenario)
	if err != nil {
		formatter.Error(err.Error(), nil)
		return WrapExitError(ExitFailure, "run scenario", err)
	}

	if opts.Format == "json" {
		data, err := timelineMap(result.Timeline)
		if err != nil {
			return WrapExitError(ExitFailure, "render timeline", err)
		}
		data["scenario_name"] = scenario.Name
		return formatter.Success(data)
	}
	return formatter.Success(renderTimelineText(result.Timeline))
}
