package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/threadgate/internal/timeline"
)

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <thread-id>",
		Short: "Show a thread's assembled timeline",
		Long: `Reconstruct one thread's timeline from the event log: turns in
depth-first ancestry order, each with its events in append order. An
unknown thread yields an empty timeline, not an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(rootOpts, args[0], cmd)
		},
	}
}

func runTimeline(opts *RootOptions, threadID string, cmd *cobra.Command) error {
	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	view, err := timeline.Assemble(cmd.Context(), s, threadID)
	if err != nil {
		return WrapExitError(ExitFailure, "assemble timeline", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		data, err := timelineMap(view)
		if err != nil {
			return WrapExitError(ExitFailure, "render timeline", err)
		}
		return formatter.Success(data)
	}
	return formatter.Success(renderTimelineText(view))
}
