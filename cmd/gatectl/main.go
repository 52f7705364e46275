package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/gatepanel/cmd/gatectl/app"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	if err := app.NewGateCtlCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
