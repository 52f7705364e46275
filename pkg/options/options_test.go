package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:8080", false},
		{":8080", false},
		{"localhost:80", false},
		{"8080", true},
		{"0.0.0.0:http", true},
		{"0.0.0.0:70000", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMqttOptionsDefaults(t *testing.T) {
	o := NewMqttOptions()
	assert.Empty(t, o.Validate())

	cfg := o.ToClientConfig("gatepanel-1", "user", "pass")
	assert.Equal(t, DefaultBroker, cfg.BrokerURL)
	assert.Equal(t, uint16(60), cfg.KeepAlive)
	assert.Equal(t, "user", cfg.Username)
	assert.Equal(t, "pass", cfg.Password)
	assert.Equal(t, "gatepanel-1", cfg.ClientID)
}

func TestMqttOptionsValidate(t *testing.T) {
	o := NewMqttOptions()
	o.Broker = "not a url"
	o.TopicRoot = ""
	o.KeepAlive = 0
	o.PublishTimeout = 0

	assert.Len(t, o.Validate(), 4)
}

func TestMqttOptionsFlags(t *testing.T) {
	o := NewMqttOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--mqtt.broker=tcp://localhost:1883",
		"--mqtt.topic-root=site/a",
		"--mqtt.keep-alive=20s",
		"--mqtt.clean-start=false",
	}))

	assert.Equal(t, "tcp://localhost:1883", o.Broker)
	assert.Equal(t, "site/a", o.TopicRoot)
	assert.Equal(t, 20*time.Second, o.KeepAlive)
	assert.False(t, o.CleanStart)
}

func TestHttpOptionsValidate(t *testing.T) {
	o := NewHttpOptions()
	assert.Empty(t, o.Validate())

	o.Addr = "nope"
	o.Timeout = 0
	assert.Len(t, o.Validate(), 2)
}
