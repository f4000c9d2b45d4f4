package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/ev-dashboard/internal/logger"
	"github.com/sweeney/ev-dashboard/internal/logic"
)

// DefaultBufferSize is the number of messages held while the broker is unreachable.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	Log        *logger.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *logger.Logger

	mu        sync.Mutex
	pending   *ringBuffer
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher for the given broker. A broker that
// is down at startup is retried in the background.
// The broker keeps a retained will so subscribers see an unclean exit.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "ev-dashboard"
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Log == nil {
		o.Log = logger.Discard()
	}

	p := &RealPublisher{
		log:     o.Log.WithTag("mqtt"),
		pending: newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     Shutdown,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warnf("connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	// With ConnectRetry the token only completes once connected; until then
	// publishes go to the buffer.
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warnf("broker %s not reachable yet, buffering", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays buffered messages and, after a reconnect, announces it.
// paho calls it on its own goroutine.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.pending.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if dropped > 0 {
		p.log.Warnf("dropped %d messages while disconnected", dropped)
	}
	for _, m := range msgs {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			p.log.Errorf("replay to %s failed: %v", m.topic, token.Error())
		}
	}
	if len(msgs) > 0 {
		p.log.Infof("replayed %d buffered messages", len(msgs))
	}

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: Reconnected})
		if err != nil {
			p.log.Errorf("format %s: %v", Reconnected, err)
			return
		}
		c.Publish(TopicSystem, 1, false, payload)
	}
}

// send publishes directly while connected and buffers otherwise. The
// connection check and the push share p.mu with onConnect's drain, so a
// buffered message is always seen by the next drain.
func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		if p.pending.push(message{topic: topic, payload: payload, qos: qos, retained: retained}) {
			p.log.Debugf("buffer full, dropped oldest message")
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Publish sends a dashboard event to its routed topic. Retained warning
// state goes at QoS 1, transient events at QoS 0.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	topic, retained := Route(event)
	var qos byte
	if retained {
		qos = 1
	}
	return p.send(topic, qos, retained, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) so shutdown reaches the broker
	return p.send(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
