// Package mqttlink implements telemetry sessions on the Eclipse Paho MQTT
// client. Reconnection is owned by the telemetry supervisor, so Paho's own
// auto-reconnect is disabled.
package mqttlink

import (
	"context"
	"errors"
	"sync"
	"time"

	"plantsense-go/errcode"
	"plantsense-go/services/telemetry"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ErrNotConnected is returned by Publish without an open connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// Config describes one client session.
type Config struct {
	Broker         string        // e.g. "tcp://5.196.78.28:1883"
	ClientID       string        // full client id (see ClientID)
	Username       string        // optional
	Password       string        // optional
	KeepAlive      time.Duration // default 60 s
	ConnectTimeout time.Duration // default 10 s
	PublishTimeout time.Duration // default 2 s
	// StatusTopic carries the retained availability: "offline" as the
	// last will and "online" after each connect. Empty disables it.
	StatusTopic string
	BootID      string
}

// ClientID derives a per-client id from base and suffix. With unique set a
// short random fragment is appended so two boards can share a base id.
func ClientID(base, suffix string, unique bool) string {
	id := base
	if suffix != "" {
		id += "-" + suffix
	}
	if unique {
		id += "-" + uuid.NewString()[:8]
	}
	return id
}

// NewBootID returns a random identifier for this power cycle.
func NewBootID() string { return uuid.NewString() }

// Session is one Paho client. It satisfies telemetry.Session.
type Session struct {
	cfg Config

	mu     sync.Mutex
	client mqtt.Client
	notify func(accepted bool)
}

var _ telemetry.Session = (*Session)(nil)

func New(cfg Config) *Session {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 60 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &Session{cfg: cfg}
}

// Notify sets the connect-result callback, usually Supervisor.Signal.
func (s *Session) Notify(fn func(accepted bool)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func (s *Session) ClientID() string { return s.cfg.ClientID }

func (s *Session) signal(accepted bool) {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(accepted)
	}
}

func (s *Session) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetKeepAlive(s.cfg.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetOrderMatters(false)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username).SetPassword(s.cfg.Password)
	}
	if s.cfg.StatusTopic != "" {
		opts.SetWill(s.cfg.StatusTopic, statusPayload("offline", s.cfg.BootID), 0, true)
	}
	// Acceptance is signalled from Connect once the token completes; the
	// handler runs on its own goroutine and only announces availability.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		println("[mqtt]", s.cfg.ClientID, "connected")
		if s.cfg.StatusTopic != "" {
			c.Publish(s.cfg.StatusTopic, 0, true, statusPayload("online", s.cfg.BootID))
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		println("[mqtt]", s.cfg.ClientID, "connection lost:", err.Error())
		s.signal(false)
	})
	return opts
}

// Connect issues a connect request and waits for the CONNACK or ctx.
// The result is reported through the Notify callback before Connect returns.
// A connection that is already open counts as accepted.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.client == nil {
		s.client = mqtt.NewClient(s.options())
	}
	c := s.client
	s.mu.Unlock()

	if c.IsConnectionOpen() {
		s.signal(true)
		return nil
	}
	tok := c.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		s.signal(false)
		return err
	}
	s.signal(true)
	return nil
}

// Disconnect closes the connection, allowing 250 ms for in-flight work.
func (s *Session) Disconnect() {
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()
	if c != nil && c.IsConnected() {
		c.Disconnect(250)
	}
}

// Publish hands payload to Paho and waits briefly for it to be written.
func (s *Session) Publish(topic string, qos byte, retain bool, payload []byte) error {
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()
	if c == nil || !c.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := c.Publish(topic, qos, retain, payload)
	if !tok.WaitTimeout(s.cfg.PublishTimeout) {
		return errcode.Timeout
	}
	return tok.Error()
}

func statusPayload(state, boot string) string {
	if boot == "" {
		return `{"status":"` + state + `"}`
	}
	return `{"status":"` + state + `","boot":"` + boot + `"}`
}
