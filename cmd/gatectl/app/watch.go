package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
)

func newWatchCommand(ctx context.Context, opts *ctlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the gate heartbeat and connection status until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.complete(cmd.Flags()); err != nil {
				return err
			}
			return runWatch(ctx, cmd.OutOrStdout(), opts)
		},
	}
}

func runWatch(ctx context.Context, out io.Writer, opts *ctlOptions) error {
	sess := opts.newSession()
	defer sess.Close()

	w := newWatchPrinter(out)
	sess.OnStatusChange(func(st model.ConnectionStatus) {
		w.row(time.Now(), "status", sess.Snapshot(), string(st))
	})
	sess.OnError(func(msg string) {
		w.row(time.Now(), "error", sess.Snapshot(), msg)
	})
	sess.OnHeartbeat(func(at *time.Time, _ model.GateLiveness) {
		detail := "-"
		if at != nil {
			detail = at.Local().Format(time.DateTime)
		}
		w.row(time.Now(), "heartbeat", sess.Snapshot(), detail)
	})

	if err := connect(ctx, sess, opts.credentials(), opts.ConnectTimeout); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-disconnected(sess):
	}
	return nil
}

// disconnected is closed when the session leaves the connected status.
func disconnected(sess *session.Session) <-chan struct{} {
	ch := make(chan struct{})
	var once sync.Once
	sess.OnStatusChange(func(st model.ConnectionStatus) {
		if st != model.StatusConnected {
			once.Do(func() { close(ch) })
		}
	})
	return ch
}

// watchPrinter writes one aligned table row per event.
type watchPrinter struct {
	out    io.Writer
	header bool
}

func newWatchPrinter(out io.Writer) *watchPrinter {
	return &watchPrinter{out: out}
}

func (p *watchPrinter) row(at time.Time, event string, st session.State, detail string) {
	table := uitable.New()
	table.MaxColWidth = 60
	if !p.header {
		table.AddRow("TIME", "EVENT", "STATUS", "GATE", "DETAIL")
		p.header = true
	}
	table.AddRow(at.Format(time.TimeOnly), padRight(event, 9), padRight(string(st.Status), 12), padRight(string(st.Liveness), 7), detail)
	_, _ = io.WriteString(p.out, table.String()+"\n")
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}
