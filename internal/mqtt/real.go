package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/intercom/internal/intercom"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	Username   string
	Password   string
	TLS        *tls.Config
	BufferSize int
}

// CommandHandler receives raw command payloads from the commands topic.
// It runs on a paho goroutine and must not block.
type CommandHandler func(payload string)

// client is the subset of paho.Client used by RealPublisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client    client
	topics    Topics
	onCommand CommandHandler

	mu        sync.Mutex
	buf       *outbox
	connected bool
	everUp    bool
	now       func() time.Time
}

func init() {
	paho.ERROR = log.New(os.Stdout, "[MQTT ERROR] ", 0)
	paho.CRITICAL = log.New(os.Stdout, "[MQTT CRIT] ", 0)
	paho.WARN = log.New(os.Stdout, "[MQTT WARN] ", 0)
}

// NewRealPublisher connects to the broker. If the broker is unreachable the
// publisher is still returned: paho keeps retrying in the background and
// messages are buffered until the first connection.
func NewRealPublisher(o Options, onCommand CommandHandler) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, fmt.Errorf("no broker configured")
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 100
	}

	p := newPublisher(nil, o, onCommand)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
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
		SetKeepAlive(60*time.Second).
		SetBinaryWill(o.Topics.Status, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.onConnectionLost(err) })
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	if o.TLS != nil {
		opts.SetTLSConfig(o.TLS)
	}

	c := paho.NewClient(opts)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", o.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(c client, o Options, onCommand CommandHandler) *RealPublisher {
	return &RealPublisher{
		client:    c,
		topics:    o.Topics,
		onCommand: onCommand,
		buf:       newOutbox(o.BufferSize),
		now:       time.Now,
	}
}

// NewTLSConfig builds a TLS config from PEM files. caFile may be empty to
// use the system roots; certFile and keyFile may both be empty.
func NewTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	cfg := &tls.Config{}
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file %s: %w", caFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", caFile)
		}
		cfg.RootCAs = pool
	}
	if certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Publish sends a device event to the events topic.
func (p *RealPublisher) Publish(event intercom.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: rings and opens should not be lost.
	return p.publish(p.topics.Events, 1, false, payload)
}

// PublishSystem sends a lifecycle event to the status topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.topics.Status, 1, event.Retained, payload)
}

// publish hands payload to paho, or buffers it while disconnected. The
// connected check, the push and the hand-off share one critical section with
// the replay in onConnect, so nothing is stranded in the outbox and live
// messages never overtake buffered ones.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.connected {
		p.buf.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	token := p.client.Publish(topic, qos, retained, payload)
	p.mu.Unlock()

	if !token.WaitTimeout(publishTimeout) {
		p.mu.Lock()
		p.buf.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return fmt.Errorf("publish timeout (buffered)")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Dropped returns how many buffered messages were overwritten because the
// outbox was full.
func (p *RealPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.dropped
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}

func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.everUp
	p.connected = true
	p.everUp = true
	pending := p.buf.drain()
	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	p.mu.Unlock()

	log.Printf("mqtt: connected")

	if token := p.client.Subscribe(p.topics.Commands, 1, func(_ paho.Client, m paho.Message) {
		p.handleMessage(m.Topic(), m.Payload())
	}); token.WaitTimeout(publishTimeout) && token.Error() != nil {
		log.Printf("mqtt: subscribe %s: %v", p.topics.Commands, token.Error())
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		p.client.Publish(p.topics.Status, 1, false, payload)
	}
}

func (p *RealPublisher) onConnectionLost(err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

func (p *RealPublisher) handleMessage(topic string, payload []byte) {
	if topic != p.topics.Commands || p.onCommand == nil {
		return
	}
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return
	}
	p.onCommand(text)
}
