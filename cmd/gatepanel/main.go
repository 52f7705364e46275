package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/gatepanel/cmd/gatepanel/app"
)

func main() {
	app.NewApp().Run()
}
