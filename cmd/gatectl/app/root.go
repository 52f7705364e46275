package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/klog/v2"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/pkg/log"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

const envPrefix = "GATECTL"

// ctlOptions are shared by every gatectl subcommand.
type ctlOptions struct {
	Username       string
	Password       string
	ConnectTimeout time.Duration

	MqttOptions *options.MqttOptions
	Log         *log.Options

	sessionOpts []session.Option
}

func newCtlOptions() *ctlOptions {
	logOpts := log.NewOptions()
	logOpts.Level = "warn"
	logOpts.OutputPaths = []string{"stderr"}
	return &ctlOptions{
		ConnectTimeout: 30 * time.Second,
		MqttOptions:    options.NewMqttOptions(),
		Log:            logOpts,
	}
}

func (o *ctlOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("credentials")
	fs.StringVarP(&o.Username, "username", "u", o.Username, "Broker username (or "+envPrefix+"_USERNAME).")
	fs.StringVarP(&o.Password, "password", "p", o.Password, "Broker password (or "+envPrefix+"_PASSWORD).")
	fs.DurationVar(&o.ConnectTimeout, "connect-timeout", o.ConnectTimeout, "How long to wait for the broker to accept the connection.")
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// complete fills credentials from the environment when the flags were not given.
func (o *ctlOptions) complete(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if !fs.Changed("username") {
		o.Username = v.GetString("username")
	}
	if !fs.Changed("password") {
		o.Password = v.GetString("password")
	}

	creds := model.Credentials{Username: o.Username, Password: o.Password}
	if !creds.Complete() {
		return errors.New("username and password are required")
	}

	if err := utilerrors.NewAggregate(append(o.MqttOptions.Validate(), o.Log.Validate()...)); err != nil {
		return err
	}

	log.Init(o.Log)
	klog.SetLogger(log.Std().Logr())
	return nil
}

func (o *ctlOptions) newSession() *session.Session {
	return session.New(o.MqttOptions, o.sessionOpts...)
}

func (o *ctlOptions) credentials() model.Credentials {
	return model.Credentials{Username: o.Username, Password: o.Password}
}

// NewGateCtlCommand returns the gatectl root command.
func NewGateCtlCommand(ctx context.Context) *cobra.Command {
	return newGateCtlCommand(ctx, newCtlOptions())
}

func newGateCtlCommand(ctx context.Context, opts *ctlOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gatectl",
		Short:        "Operate the gate from the command line",
		Long:         "gatectl connects to the gate's MQTT broker to send gate commands or watch the gate heartbeat.",
		SilenceUsage: true,
	}

	namedfs := opts.Flags()
	for _, f := range namedfs.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cmd.AddCommand(newSendCommand(ctx, opts), newWatchCommand(ctx, opts))
	return cmd
}

// connect starts a session and waits until the broker accepted or refused it.
func connect(ctx context.Context, sess *session.Session, creds model.Credentials, timeout time.Duration) error {
	result := make(chan error, 1)
	report := func(err error) {
		select {
		case result <- err:
		default:
		}
	}

	unsubscribe := sess.OnStatusChange(func(st model.ConnectionStatus) {
		switch st {
		case model.StatusConnected:
			report(nil)
		case model.StatusError:
			report(fmt.Errorf("connection failed: %s", sess.Error()))
		case model.StatusDisconnected:
			report(errors.New("connection closed by broker"))
		}
	})
	defer unsubscribe()

	sess.Connect(creds)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s waiting for the broker", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
