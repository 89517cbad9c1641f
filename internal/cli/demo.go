package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/store"
	"github.com/roach88/threadgate/internal/timeline"
)

const demoThreadID = "demo-x"

// demoTurns is the canonical branching walkthrough: one root and two
// siblings, so the printed timeline shows both context accumulation and
// branch divergence.
var demoTurns = []struct {
	turnID  string
	parent  string
	message string
}{
	{"turn-1", "", "hello from turn-1"},
	{"turn-2", "turn-1", "hello from turn-2"},
	{"turn-3a", "turn-1", "hello from turn-3a"},
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a three-turn branching demo and print its timeline",
		Long: `Run a self-contained walkthrough against an in-memory store: a root
turn, a child continuing it, and a sibling branching from the root. The
configured database is not touched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, cmd)
		},
	}
}

func runDemo(opts *RootOptions, cmd *cobra.Command) error {
	s, err := store.Open(":memory:")
	if err != nil {
		return WrapExitError(ExitFailure, "open in-memory store", err)
	}
	defer s.Close()

	g, err := newGateway(opts, s)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	for _, turn := range demoTurns {
		result, err := g.ProcessIntent(cmd.Context(), dag.Intent{
			CorrelationID: "demo-" + turn.turnID,
			ThreadID:      demoThreadID,
			TurnID:        turn.turnID,
			ParentTurnID:  turn.parent,
			Payload:       dag.Object{"message": dag.String(turn.message)},
		})
		if err != nil {
			return WrapExitError(ExitFailure, "demo turn "+turn.turnID, err)
		}
		formatter.VerboseLog("turn %s: context %s decision %s",
			turn.turnID, result.ContextDigest, result.DecisionDigest)
	}

	view, err := timeline.Assemble(cmd.Context(), s, demoThreadID)
	if err != nil {
		return WrapExitError(ExitFailure, "assemble timeline", err)
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
