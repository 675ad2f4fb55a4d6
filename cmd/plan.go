// File: cmd/plan.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/observability"
)

func newPlanCmd(f factories) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <command>",
		Short: "Interpret a command and print the planned actions as JSON.",
		Long: `Plan runs the command through the interpreter (cache, instant patterns,
heuristics, then the planner model) without touching a device.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runPlan(ctx, f, cfg, observability.GetLogger(), strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

// runPlan interprets command and writes the result document to out.
func runPlan(ctx context.Context, f factories, cfg *config.Config, logger *zap.Logger, command string, out io.Writer) error {
	c, err := initializeComponents(ctx, f, cfg, logger, false, false)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	result := c.newInterpreter(cfg).Interpret(ctx, command)
	return writeResult(out, result)
}

func writeResult(out io.Writer, result action.CommandResult) error {
	data, err := action.MarshalResult(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
