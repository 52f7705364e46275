package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
)

func newSendCommand(ctx context.Context, opts *ctlOptions) *cobra.Command {
	var wait time.Duration

	actions := make([]string, 0, len(model.GateCommands))
	for _, c := range model.GateCommands {
		actions = append(actions, c.String())
	}

	cmd := &cobra.Command{
		Use:       "send ACTION",
		Short:     "Send a gate command (" + strings.Join(actions, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := model.ParseGateCommand(args[0])
			if err != nil {
				return err
			}
			if err := opts.complete(cmd.Flags()); err != nil {
				return err
			}
			return runSend(ctx, cmd, opts, action, wait)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "After sending, wait this long for a heartbeat from the gate.")
	return cmd
}

func runSend(ctx context.Context, cmd *cobra.Command, opts *ctlOptions, action model.GateCommand, wait time.Duration) error {
	sess := opts.newSession()
	defer sess.Close()

	if err := connect(ctx, sess, opts.credentials(), opts.ConnectTimeout); err != nil {
		return err
	}

	heartbeat := make(chan model.GateLiveness, 1)
	sess.OnHeartbeat(func(_ *time.Time, l model.GateLiveness) {
		select {
		case heartbeat <- l:
		default:
		}
	})

	if !sess.SendCommand(ctx, action) {
		return fmt.Errorf("command %q was not sent: %s", action, sess.Error())
	}

	// The record is gone when the connection dropped right after the publish.
	st := sess.Snapshot()
	issuedAt := time.Now()
	if st.LastCommand != nil {
		issuedAt = st.LastCommand.IssuedAt
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Action '%s' sent to %s at %s\n", action, st.ControlTopic, issuedAt.Format(time.RFC3339))

	if wait <= 0 {
		return nil
	}

	select {
	case l := <-heartbeat:
		fmt.Fprintf(cmd.OutOrStdout(), "Gate is %s\n", l)
	case <-time.After(wait):
		fmt.Fprintf(cmd.OutOrStdout(), "No heartbeat within %s\n", wait)
	case <-ctx.Done():
	}
	return nil
}
