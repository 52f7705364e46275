package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/gatepanel/cmd/gatepanel/app/options"
	"github.com/autopeer-io/gatepanel/pkg/app"
)

const (
	commandName = "gatepanel"
	commandDesc = `The gate panel serves a small web page from which an operator connects to
the MQTT broker the gate controller is attached to, watches the gate's
heartbeat and opens the gate (full, pedestrian, left or right leaf).`
)

func NewApp() *app.App {
	opts := options.NewPanelOptions()
	application := app.NewApp(
		commandName,
		"Launch the gate remote-control panel",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithWatchConfig(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.PanelOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewServer()
		if err != nil {
			return fmt.Errorf("failed to create gate panel server: %w", err)
		}

		return server.Run(ctx)
	}
}
