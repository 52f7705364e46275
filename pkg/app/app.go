package app

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"
	"k8s.io/klog/v2"

	"github.com/autopeer-io/gatepanel/pkg/log"
)

// RunFunc is the application entry point, called once options are loaded.
type RunFunc func() error

// LogOptionsProvider is implemented by options that carry log settings. App
// initializes the global logger from them before RunFunc is called.
type LogOptionsProvider interface {
	LogOptions() *log.Options
}

// App is a command-line application built on cobra, with flags grouped by
// section and values layered from config file, environment and flags.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	run         RunFunc
	args        cobra.PositionalArgs
	noConfig    bool
	watch       bool

	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.run = run }
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithNoConfig disables the --config flag.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithWatchConfig re-applies the log level whenever the config file changes.
func WithWatchConfig() Option {
	return func(a *App) { a.watch = true }
}

func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) { a.args = args }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          a.args,
		RunE:          a.runCommand,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	if !a.noConfig {
		AddConfigFlag(namedFlagSets.FlagSet("global"), a.name)
	}
	globalflag.AddGlobalFlags(namedFlagSets.FlagSet("global"), cmd.Name())

	fs := cmd.Flags()
	for _, f := range namedFlagSets.FlagSets {
		fs.AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if a.options != nil {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := viper.Unmarshal(a.options); err != nil {
			return fmt.Errorf("failed to load options: %w", err)
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if p, ok := a.options.(LogOptionsProvider); ok {
		log.Init(p.LogOptions())
		klog.SetLogger(log.Std().Logr())
		defer func() { _ = log.Sync() }()
	}

	if !a.noConfig {
		printConfig(cmd)
		if a.watch {
			a.watchConfig()
		}
	}

	if a.run == nil {
		return nil
	}
	return a.run()
}

// watchConfig applies log level changes from the config file at runtime.
// Other settings take effect on restart.
func (a *App) watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := viper.GetString("log.level")
		if err := log.SetLevel(level); err != nil {
			log.Error(err, "Ignoring log level from changed config file", "file", e.Name)
			return
		}
		log.Info("Config file changed, log level applied", "file", e.Name, "level", level)
	})
	viper.WatchConfig()
}

// printConfig logs the effective settings, hiding anything that looks secret.
func printConfig(cmd *cobra.Command) {
	if file := viper.ConfigFileUsed(); file != "" {
		log.Debug("Using config file", "file", file)
	}

	table := uitable.New()
	table.Separator = " "
	table.MaxColWidth = 80
	table.RightAlign(0)
	for _, key := range viper.AllKeys() {
		table.AddRow(key+":", redact(key, viper.Get(key)))
	}
	log.Debug("Effective configuration\n" + table.String())
}
