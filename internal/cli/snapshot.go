package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/threadgate/internal/timeline"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Show the global event log",
		Long: `Dump every event across all threads in log append order. The output is
stable for a given log state, which makes it suitable for
poll-until-condition scripting.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(rootOpts, cmd)
		},
	}
}

func runSnapshot(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	view, err := timeline.Snapshot(cmd.Context(), s)
	if err != nil {
		return WrapExitError(ExitFailure, "read snapshot", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		data, err := snapshotMap(view)
		if err != nil {
			return WrapExitError(ExitFailure, "render snapshot", err)
		}
		return formatter.Success(data)
	}
	return formatter.Success(renderSnapshotText(view))
}
