// File: cmd/agent.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/internal/agent"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/observability"
)

var (
	errNoPlanner    = errors.New("the agent needs a configured planner model")
	errTaskFailed   = errors.New("task did not complete")
	errNothingToRun = errors.New("no interrupted task to resume")
)

type agentOptions struct {
	taskType    string
	metricsAddr string
}

func newAgentCmd(f factories) *cobra.Command {
	var opts agentOptions

	cmd := &cobra.Command{
		Use:   "agent <task>",
		Short: "Run the observe-decide-act loop on the device until the task is done.",
		Long: `Agent repeatedly reads the screen, asks the planner model for the next action
and performs it, until the model reports completion or the iteration limit is
reached. Interrupting the command keeps the task resumable with "auralia resume".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			req := agent.TaskRequest{Task: strings.Join(args, " "), TaskType: opts.taskType}
			return runAgent(ctx, f, cfg, observability.GetLogger(), opts, cmd.OutOrStdout(), func(ctx context.Context, a *agent.Agent) (agent.TaskResult, error) {
				return a.Run(ctx, req), nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.taskType, "type", agent.DefaultTaskType, "Category recorded with the task context.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the task runs (e.g. :9090).")
	return cmd
}

func newResumeCmd(f factories) *cobra.Command {
	var opts agentOptions

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue the task that was interrupted, from its last recorded step.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runAgent(ctx, f, cfg, observability.GetLogger(), opts, cmd.OutOrStdout(), func(ctx context.Context, a *agent.Agent) (agent.TaskResult, error) {
				if !a.Resume(ctx) {
					return agent.TaskResult{}, errNothingToRun
				}
				return a.Wait(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the task runs.")
	return cmd
}

// runAgent builds an agent on the device, lets run drive it and prints the
// task result.
func runAgent(
	ctx context.Context,
	f factories,
	cfg *config.Config,
	logger *zap.Logger,
	opts agentOptions,
	out io.Writer,
	run func(context.Context, *agent.Agent) (agent.TaskResult, error),
) error {
	c, err := initializeComponents(ctx, f, cfg, logger, true, true)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	if c.planner == nil {
		return errNoPlanner
	}
	if !c.device.Available() {
		return errDeviceUnavailable
	}
	if opts.metricsAddr != "" {
		if err := c.serveMetrics(opts.metricsAddr); err != nil {
			return err
		}
	}

	res, err := run(ctx, c.newAgent(cfg))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}
	if _, err := fmt.Fprintln(out, string(data)); err != nil {
		return err
	}

	switch {
	case res.Success:
		return nil
	case res.Message == agent.MsgCancelled:
		return context.Canceled
	default:
		return fmt.Errorf("%w: %s", errTaskFailed, res.Message)
	}
}
