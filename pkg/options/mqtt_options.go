package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/gatepanel/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// DefaultBroker is the HiveMQ Cloud endpoint the gate controller is attached to.
const DefaultBroker = "wss://3b62666a86a14b23956244c4308bad76.s1.eu.hivemq.cloud:8884/mqtt"

// MqttOptions contains configuration for the MQTT transport and topics.
// Credentials are not part of it: they are supplied per connection.
type MqttOptions struct {
	Broker string `json:"broker" mapstructure:"broker"`

	// ClientIDPrefix is combined with a random suffix for every connection.
	ClientIDPrefix string `json:"client-id-prefix" mapstructure:"client-id-prefix"`

	// Client behavior
	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	PublishTimeout time.Duration `json:"publish-timeout" mapstructure:"publish-timeout"`
	CleanStart     bool          `json:"clean-start" mapstructure:"clean-start"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// In this mode, TLS is susceptible to man-in-the-middle attacks. This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// TopicRoot is the namespace of the control and status topics: {TopicRoot}/control, {TopicRoot}/status.
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:         DefaultBroker,
		ClientIDPrefix: "gatepanel",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 30 * time.Second,
		PublishTimeout: 5 * time.Second,
		CleanStart:     true,
		TopicRoot:      "gate",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	u, err := url.Parse(o.Broker)
	switch {
	case err != nil:
		errors = append(errors, fmt.Errorf("--mqtt.broker: %w", err))
	case u.Scheme == "" || u.Host == "":
		errors = append(errors, fmt.Errorf("--mqtt.broker must be an absolute URL, got %q", o.Broker))
	}

	if o.TopicRoot == "" {
		errors = append(errors, fmt.Errorf("--mqtt.topic-root must not be empty"))
	}
	if o.KeepAlive < time.Second || o.KeepAlive.Seconds() > 65535 {
		errors = append(errors, fmt.Errorf("--mqtt.keep-alive must be between 1s and 65535s"))
	}
	if o.PublishTimeout <= 0 {
		errors = append(errors, fmt.Errorf("--mqtt.publish-timeout must be positive"))
	}

	return errors
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "The URL of the MQTT broker (tcp://, ssl://, ws:// or wss://).")
	fs.StringVar(&o.ClientIDPrefix, "mqtt.client-id-prefix", o.ClientIDPrefix, "Prefix of the generated MQTT client ID.")

	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout of a single connection attempt.")
	fs.DurationVar(&o.PublishTimeout, "mqtt.publish-timeout", o.PublishTimeout, "Upper bound for publishing a gate command.")
	fs.BoolVar(&o.CleanStart, "mqtt.clean-start", o.CleanStart, "Start every connection with a clean session.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	fs.StringVar(&o.TopicRoot, "mqtt.topic-root", o.TopicRoot, "Topic prefix of the gate control and status topics.")
}

// ToClientConfig builds a transport configuration for one connection.
func (o *MqttOptions) ToClientConfig(clientID, username, password string) *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		ClientID:           clientID,
		Username:           username,
		Password:           password,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		ConnectTimeout:     o.ConnectTimeout,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}
