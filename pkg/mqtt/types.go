package mqtt

import (
	"context"
)

// MessageHandler defines the callback function for processing received MQTT messages.
// Handlers run on the client's receive goroutine, one message at a time, in arrival order.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// LifecycleHandler receives connection lifecycle signals from a Client.
// Every method is called from a client goroutine and must not block for long.
type LifecycleHandler interface {
	// OnConnected is called once the broker accepted the connection and the
	// registered subscriptions were (re)sent.
	OnConnected()

	// OnError is called when a connection attempt fails (network, TLS or a
	// CONNACK with a failure reason such as bad credentials).
	OnError(err error)

	// OnOffline is called when an established connection is lost.
	OnOffline(err error)

	// OnPeerDisconnect is called when the broker sends a DISCONNECT packet.
	OnPeerDisconnect(reason string)
}

// Client defines the interface for a generic MQTT client.
// It abstracts the underlying paho implementation details.
type Client interface {
	// Start initiates the connection to the broker.
	// It is non-blocking and returns immediately; the outcome is reported
	// through the configured LifecycleHandler.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection and releases the client.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers a handler for a topic filter. When the client is not
	// connected yet the SUBSCRIBE packet is sent as soon as the connection is up.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error
}

// NopLifecycle ignores every lifecycle signal.
type NopLifecycle struct{}

func (NopLifecycle) OnConnected()            {}
func (NopLifecycle) OnError(error)           {}
func (NopLifecycle) OnOffline(error)         {}
func (NopLifecycle) OnPeerDisconnect(string) {}
