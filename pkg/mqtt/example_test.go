package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/gatepanel/pkg/log"
	"github.com/autopeer-io/gatepanel/pkg/mqtt"
)

type printLifecycle struct{ mqtt.NopLifecycle }

func (printLifecycle) OnConnected()      { fmt.Println("connected") }
func (printLifecycle) OnError(err error) { fmt.Println("connect failed:", err) }

// ExampleClient shows how a component creates a client, registers the
// status subscription before the connection is up and publishes a command.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "example-panel-001",
		Username:       "operator",
		Password:       "secret",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		Lifecycle:      printLifecycle{},
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx := context.Background()

	// Registered now, sent as soon as the broker accepts the connection.
	if err := client.Subscribe(ctx, "gate/status", 0, func(_ context.Context, topic string, payload []byte) {
		fmt.Printf("heartbeat on %s: %s\n", topic, payload)
	}); err != nil {
		log.Error(err, "Failed to subscribe")
	}

	// Non-blocking; the outcome arrives through printLifecycle.
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}

	if err := client.Publish(ctx, "gate/control", 0, false, []byte(`{"action":"full"}`)); err != nil {
		log.Error(err, "Failed to publish", "topic", "gate/control")
	}

	client.Disconnect(ctx)
}
