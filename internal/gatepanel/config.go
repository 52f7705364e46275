package gatepanel

import (
	"github.com/autopeer-io/gatepanel/internal/gatepanel/server/http"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/internal/pkg/metrics"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

type Config struct {
	MqttOptions *options.MqttOptions
	HttpOptions *options.HttpOptions
}

// NewServer wires the session controller to the HTTP surface. No broker
// connection is made until an operator submits credentials.
func (cfg *Config) NewServer(opts ...session.Option) (*Server, error) {
	opts = append([]session.Option{session.WithMetrics(metrics.Recorder{})}, opts...)
	sess := session.New(cfg.MqttOptions, opts...)

	return &Server{
		session: sess,
		servers: []Runnable{http.NewServer(cfg.HttpOptions, sess)},
	}, nil
}
