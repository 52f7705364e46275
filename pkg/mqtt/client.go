package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/gatepanel/pkg/log"
)

var (
	// ErrNotStarted is returned by operations that need a started client.
	ErrNotStarted = errors.New("client not started")

	// ErrNotConnected is returned by Publish while no connection is up.
	ErrNotConnected = errors.New("client not connected")
)

type pahoClient struct {
	cfg *ClientConfig

	mu     sync.Mutex
	cm     *autopaho.ConnectionManager
	cancel context.CancelFunc

	connected atomic.Bool
	// stopped is set once the client was disconnected or gave up after a
	// failure; lifecycle signals are no longer forwarded after that.
	// There is no reconnection: the first failure ends the client.
	stopped atomic.Bool

	// subscriptions holds the registered handlers.
	// Key: topic filter (string), Value: subscriptionEntry
	subscriptions sync.Map
}

type subscriptionEntry struct {
	topic   string
	qos     int
	handler MessageHandler
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg: cfg,
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cm != nil {
		return fmt.Errorf("client already started")
	}

	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // Already validated

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.router,
			},
		},
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
	}

	log.Info("Starting MQTT Client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	// The manager lives until runCtx is cancelled, by Disconnect or by halt.
	runCtx, cancel := context.WithCancel(ctx)
	cm, err := autopaho.NewConnection(runCtx, pahoCfg)
	if err != nil {
		cancel()
		return err
	}
	c.cm = cm
	c.cancel = cancel
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	c.mu.Lock()
	cm, cancel := c.cm, c.cancel
	c.mu.Unlock()

	if cm == nil {
		return
	}

	c.stopped.Store(true)
	c.connected.Store(false)
	if err := cm.Disconnect(ctx); err != nil {
		log.Debug("MQTT disconnect did not complete cleanly", "clientID", c.cfg.ClientID, "error", err)
	}
	cancel()
	log.Info("MQTT Client disconnected", "clientID", c.cfg.ClientID)
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	c.mu.Lock()
	cm := c.cm
	c.mu.Unlock()

	if cm == nil {
		return ErrNotStarted
	}
	if !c.connected.Load() {
		return ErrNotConnected
	}

	_, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})

	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	c.subscriptions.Store(topic, subscriptionEntry{
		topic:   topic,
		qos:     qos,
		handler: handler,
	})

	c.mu.Lock()
	cm := c.cm
	c.mu.Unlock()

	// Not connected yet: onConnectionUp sends the SUBSCRIBE packet.
	if cm == nil || !c.connected.Load() {
		log.Debug("Subscription registered, waiting for connection", "topic", topic)
		return nil
	}

	if _, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: byte(qos)},
		},
	}); err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	log.Info("Subscribed to topic", "topic", topic)
	return nil
}

// --- Internal Callbacks ---

// onConnectionUp is called when the connection is established or re-established.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	log.Info("MQTT Connection established", "broker", c.cfg.BrokerURL)
	c.connected.Store(true)

	// Report the connection before subscribing so retained messages on the
	// subscribed topics are delivered to a connected owner.
	if !c.stopped.Load() {
		c.cfg.Lifecycle.OnConnected()
	}

	var subs []paho.SubscribeOptions
	c.subscriptions.Range(func(_, value any) bool {
		entry := value.(subscriptionEntry)
		subs = append(subs, paho.SubscribeOptions{Topic: entry.topic, QoS: byte(entry.qos)})
		return true
	})

	if len(subs) > 0 {
		if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: subs}); err != nil {
			log.Error(err, "Failed to subscribe", "topics", len(subs))
		} else {
			for _, s := range subs {
				log.Info("Subscribed to topic", "topic", s.Topic)
			}
		}
	}
}

func (c *pahoClient) onConnectError(err error) {
	if c.stopped.Load() {
		return
	}
	log.Error(err, "MQTT Connection failed")
	c.halt()
	c.cfg.Lifecycle.OnError(err)
}

func (c *pahoClient) onClientError(err error) {
	wasConnected := c.connected.Swap(false)
	if c.stopped.Load() {
		return
	}
	log.Error(err, "MQTT Client error", "connected", wasConnected)
	c.halt()
	if wasConnected {
		c.cfg.Lifecycle.OnOffline(err)
		return
	}
	c.cfg.Lifecycle.OnError(err)
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.connected.Store(false)
	if c.stopped.Load() {
		return
	}

	reason := fmt.Sprintf("reason code %d", d.ReasonCode)
	if d.Properties != nil && d.Properties.ReasonString != "" {
		reason = d.Properties.ReasonString
	}
	log.Warn("MQTT Server requested disconnect", "reason", reason)

	c.halt()
	c.cfg.Lifecycle.OnPeerDisconnect(reason)
}

// halt stops the connection manager without waiting for it.
func (c *pahoClient) halt() {
	c.stopped.Store(true)
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// router dispatches incoming messages to the registered handlers.
// Handlers are called inline so that messages on one topic are processed in
// the order they were received.
func (c *pahoClient) router(p paho.PublishReceived) (bool, error) {
	matched := false
	c.subscriptions.Range(func(_, value any) bool {
		entry := value.(subscriptionEntry)
		if topicsMatch(topicFilter(entry.topic), p.Packet.Topic) {
			entry.handler(context.Background(), p.Packet.Topic, p.Packet.Payload)
			matched = true
		}
		return true
	})

	if !matched {
		log.Debug("Received message on unhandled topic", "topic", p.Packet.Topic)
	}

	return true, nil // Always acknowledge reception
}

// topicsMatch checks if a topic matches a filter (supports wildcards + and #).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}

	if !strings.Contains(filter, "+") && !strings.Contains(filter, "#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}

func topicFilter(filter string) string {
	if strings.HasPrefix(filter, "$share/") {
		// Format: $share/<group>/<topic>
		parts := strings.SplitN(filter, "/", 3)
		if len(parts) == 3 {
			return parts[2]
		}
	}
	return filter
}
