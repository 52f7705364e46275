package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGateCommand(t *testing.T) {
	for _, c := range GateCommands {
		got, err := ParseGateCommand(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	for _, s := range []string{"", "FULL", "open", "close"} {
		_, err := ParseGateCommand(s)
		assert.Error(t, err, s)
	}
}

func TestControlMessageWireFormat(t *testing.T) {
	b, err := json.Marshal(ControlMessage{Action: CommandPedestrian})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"pedestrian"}`, string(b))
}

func TestCredentialsNeverPrintPassword(t *testing.T) {
	c := Credentials{Username: "gatekeeper", Password: "s3cr3t"}

	for _, s := range []string{c.String(), fmt.Sprintf("%v", c), fmt.Sprintf("%+v", c), fmt.Sprintf("%#v", c)} {
		assert.NotContains(t, s, "s3cr3t")
		assert.Contains(t, s, "gatekeeper")
	}
}

func TestCredentialsComplete(t *testing.T) {
	assert.True(t, Credentials{Username: "u", Password: "p"}.Complete())
	assert.False(t, Credentials{Username: "u"}.Complete())
	assert.False(t, Credentials{Password: "p"}.Complete())
}
