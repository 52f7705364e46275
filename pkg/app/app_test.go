package app

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"
)

type testOptions struct {
	Name     string `mapstructure:"name"`
	validate error
	complete int
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("test")
	fs.StringVar(&o.Name, "name", o.Name, "A name.")
	return fss
}

func (o *testOptions) Complete() error { o.complete++; return nil }
func (o *testOptions) Validate() error { return o.validate }

func TestRunCallsRunFunc(t *testing.T) {
	opts := &testOptions{Name: "default"}
	ran := false
	a := NewApp("test-app", "test",
		WithOptions(opts),
		WithNoConfig(),
		WithDefaultValidArgs(),
		WithRunFunc(func() error { ran = true; return nil }),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{"--name=flagged"})
	require.NoError(t, cmd.Execute())

	assert.True(t, ran)
	assert.Equal(t, 1, opts.complete)
	assert.Equal(t, "flagged", opts.Name)
}

func TestValidateErrorStopsRun(t *testing.T) {
	opts := &testOptions{validate: errors.New("bad")}
	ran := false
	a := NewApp("test-app-invalid", "test",
		WithOptions(opts),
		WithNoConfig(),
		WithRunFunc(func() error { ran = true; return nil }),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{})
	assert.EqualError(t, cmd.Execute(), "bad")
	assert.False(t, ran)
}

func TestDefaultValidArgsRejectsArguments(t *testing.T) {
	a := NewApp("test-app-args", "test", WithNoConfig(), WithDefaultValidArgs())
	cmd := a.Command()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "******", redact("mqtt.password", "x"))
	assert.Equal(t, "******", redact("api.TOKEN", "x"))
	assert.Equal(t, "wss://h", redact("mqtt.broker", "wss://h"))
}

func TestConfigFlagRegistered(t *testing.T) {
	assert.NotNil(t, pflag.Lookup(configFlagName))
}
