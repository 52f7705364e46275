package http

import (
	"context"
	"net"
	"net/http"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/pkg/log"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

// Controller is the part of session.Session the HTTP surface drives.
type Controller interface {
	Connect(creds model.Credentials)
	Disconnect()
	SendCommand(ctx context.Context, action model.GateCommand) bool
	Snapshot() session.State
	Error() string

	OnStatusChange(fn session.StatusFunc) (unsubscribe func())
	OnError(fn session.ErrorFunc) (unsubscribe func())
	OnHeartbeat(fn session.HeartbeatFunc) (unsubscribe func())
}

var _ Controller = (*session.Session)(nil)

// Server is the operator-facing HTTP surface: the control page, the JSON API,
// the event stream and the probes.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
	events  *eventHub
}

func NewServer(opts *options.HttpOptions, ctrl Controller) *Server {
	events := newEventHub(ctrl)
	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           newRouter(opts, ctrl, events),
			ReadHeaderTimeout: opts.Timeout,
		},
		options: opts,
		events:  events,
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	log.Info("Starting HTTP Server", "addr", ln.Addr().String())

	stop := s.events.start()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		log.Info("Shutting down HTTP Server")
		s.events.closeAll()
		return s.server.Shutdown(shutdownCtx)
	}
}
