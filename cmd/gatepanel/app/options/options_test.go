package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanelOptionsDefaultsAreValid(t *testing.T) {
	o := NewPanelOptions()
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.MqttOptions, cfg.MqttOptions)
	assert.Same(t, o.HttpOptions, cfg.HttpOptions)
}

func TestPanelOptionsAggregateErrors(t *testing.T) {
	o := NewPanelOptions()
	o.HttpOptions.Addr = "nope"
	o.MqttOptions.TopicRoot = ""
	o.Log.Format = "xml"

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic-root")
	assert.Contains(t, err.Error(), "log.format")
}

func TestPanelFlagSections(t *testing.T) {
	fss := NewPanelOptions().Flags()
	assert.Equal(t, []string{"http", "mqtt", "log"}, fss.Order)
	assert.NotNil(t, fss.FlagSet("mqtt").Lookup("mqtt.broker"))
}
