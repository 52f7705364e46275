package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/gatepanel/internal/gatepanel"
	"github.com/autopeer-io/gatepanel/pkg/app"
	"github.com/autopeer-io/gatepanel/pkg/log"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

type PanelOptions struct {
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*PanelOptions)(nil)
	_ app.LogOptionsProvider  = (*PanelOptions)(nil)
)

func NewPanelOptions() *PanelOptions {
	o := &PanelOptions{
		HttpOptions: options.NewHttpOptions(),
		MqttOptions: options.NewMqttOptions(),
		Log:         log.NewOptions(),
	}

	return o
}

func (o *PanelOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *PanelOptions) Complete() error {
	return nil
}

func (o *PanelOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *PanelOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *PanelOptions) Config() (*gatepanel.Config, error) {
	return &gatepanel.Config{
		HttpOptions: o.HttpOptions,
		MqttOptions: o.MqttOptions,
	}, nil
}
