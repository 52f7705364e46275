package gatepanel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/pkg/log"
)

// Runnable is a component that runs until ctx is cancelled.
type Runnable interface {
	Start(ctx context.Context) error
}

// Server runs the gate panel: the session controller and its servers.
type Server struct {
	session *session.Session
	servers []Runnable
}

// Session returns the session controller the servers drive.
func (s *Server) Session() *session.Session {
	return s.session
}

// Run starts all servers and blocks until ctx is cancelled or one of them
// fails. The broker connection is closed before Run returns.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range s.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Closing MQTT session")
		s.session.Close()
		return nil
	})

	log.Info("Gate panel starting...")
	return g.Wait()
}
