// File: cmd/do.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/observability"
)

var (
	errDeviceUnavailable = errors.New("device is not available")
	errExecutionFailed   = errors.New("one or more actions failed")
)

func newDoCmd(f factories) *cobra.Command {
	return &cobra.Command{
		Use:   "do <command>",
		Short: "Interpret a command and perform it on the device.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runDo(ctx, f, cfg, observability.GetLogger(), strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

// runDo interprets command, prints the plan, then executes it. The plan is
// executed even when interpretation fell back, so the fallback screenshot
// still happens.
func runDo(ctx context.Context, f factories, cfg *config.Config, logger *zap.Logger, command string, out io.Writer) error {
	c, err := initializeComponents(ctx, f, cfg, logger, true, false)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	if !c.device.Available() {
		return errDeviceUnavailable
	}

	result := c.newInterpreter(cfg).Interpret(ctx, command)
	if err := writeResult(out, result); err != nil {
		return err
	}

	seq := c.newSequencer(cfg)
	ok := seq.Execute(ctx, result.Actions)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !ok {
		return errExecutionFailed
	}
	if !result.Success {
		return fmt.Errorf("command not understood: %s", result.Message)
	}
	return nil
}
