package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/engine"
	"github.com/roach88/threadgate/internal/store"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Parent        string
	Message       string
	Payload       string
	CorrelationID string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <thread-id> <turn-id>",
		Short: "Submit a turn and run it through the decision pipeline",
		Long: `Submit a turn into a thread's DAG, build its context from ancestry, and
record the policy decision. Resubmitting an existing turn is idempotent.

Example:
  threadgate submit demo-x turn-2 --parent turn-1 --message "hello"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parent, "parent", "", "parent turn id (empty for a root turn)")
	cmd.Flags().StringVar(&opts.Message, "message", "", "message text (shorthand for a {\"message\": ...} payload)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "turn payload as JSON (mutually exclusive with --message)")
	cmd.Flags().StringVar(&opts.CorrelationID, "correlation-id", "", "explicit correlation id (default: generated UUIDv7)")

	return cmd
}

func runSubmit(opts *SubmitOptions, threadID, turnID string, cmd *cobra.Command) error {
	payload, err := submitPayload(opts)
	if err != nil {
		return err
	}

	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = UUIDGenerator{}.NewCorrelationID()
	}

	s, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := newGateway(opts.RootOptions, s)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("submitting turn %s to thread %s (correlation %s)", turnID, threadID, correlationID)

	result, err := g.ProcessIntent(cmd.Context(), dag.Intent{
		CorrelationID: correlationID,
		ThreadID:      threadID,
		TurnID:        turnID,
		ParentTurnID:  opts.Parent,
		Payload:       payload,
	})
	if err != nil {
		formatter.Error(err.Error(), nil)
		if store.IsUnknownParent(err) {
			return WrapExitError(ExitCommandError, "submit", err)
		}
		return WrapExitError(ExitFailure, "submit", err)
	}

	return formatter.Success(submitData(correlationID, result, opts.Format))
}

func submitPayload(opts *SubmitOptions) (dag.Value, error) {
	if opts.Message != "" && opts.Payload != "" {
		return nil, NewExitError(ExitCommandError, "--message and --payload are mutually exclusive")
	}
	if opts.Payload != "" {
		v, err := dag.FromJSON([]byte(opts.Payload))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --payload JSON", err)
		}
		return v, nil
	}
	return dag.Object{"message": dag.String(opts.Message)}, nil
}

func submitData(correlationID string, result engine.Result, format string) any {
	if format == "json" {
		return map[string]any{
			"correlation_id":  correlationID,
			"turn_created":    result.TurnCreated,
			"context_digest":  result.ContextDigest,
			"decision_digest": result.DecisionDigest,
			"decision_reused": result.DecisionReused,
		}
	}
	status := "created"
	if !result.TurnCreated {
		status = "existing"
	}
	decision := "decided"
	if result.DecisionReused {
		decision = "reused"
	}
	return fmt.Sprintf("turn %s, decision %s\ncontext  %s\ndecision %s",
		status, decision, result.ContextDigest, result.DecisionDigest)
}
