// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"plantsense-go/bus"
	"plantsense-go/errcode"
	"plantsense-go/types"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

type Config struct {
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Kafka KafkaConfig `yaml:"kafka"`
	HTTP  HTTPConfig  `yaml:"http"`
	Queue int         `yaml:"queue"` // pending records; oldest dropped when full
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Filter   string `yaml:"filter"` // e.g. "pico/+/data"
}

type KafkaConfig struct {
	Brokers    []string      `yaml:"brokers"`
	Topic      string        `yaml:"topic"`
	RetryMin   time.Duration `yaml:"retry_min"`
	RetryMax   time.Duration `yaml:"retry_max"`
	MaxRetries int           `yaml:"max_retries"` // 0 => retry until shutdown
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() Config {
	return Config{
		MQTT:  MQTTConfig{Broker: "tcp://5.196.78.28:1883", ClientID: "plantsense-bridge", Filter: "pico/+/data"},
		Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "plantsense.telemetry", RetryMin: 250 * time.Millisecond, RetryMax: 5 * time.Second},
		HTTP:  HTTPConfig{Addr: ":8080"},
		Queue: 256,
	}
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

// Record is one decoded telemetry message as forwarded to Kafka.
type Record struct {
	ID         string               `json:"id"`
	Source     string               `json:"source"` // MQTT topic
	Kind       types.Kind           `json:"kind"`
	ReceivedAt time.Time            `json:"received_at"`
	CO2        *types.CO2Value      `json:"co2,omitempty"`
	Spectrum   *types.SpectrumValue `json:"spectrum,omitempty"`
}

// Decode selects the payload schema from the topic's device segment.
func Decode(topic string, payload []byte, now time.Time) (Record, error) {
	rec := Record{ID: uuid.NewString(), Source: topic, ReceivedAt: now.UTC()}
	switch {
	case strings.Contains(topic, "/scd41/"):
		v, err := ParseCO2(payload)
		if err != nil {
			return Record{}, err
		}
		v.TS = now.UnixMilli()
		rec.Kind, rec.CO2 = types.KindCO2, &v
	case strings.Contains(topic, "/as7341/"):
		v, err := ParseSpectrum(payload)
		if err != nil {
			return Record{}, err
		}
		v.TS = now.UnixMilli()
		rec.Kind, rec.Spectrum = types.KindSpectrum, &v
	default:
		return Record{}, &errcode.E{C: errcode.Unsupported, Op: "bridge.Decode", Msg: topic}
	}
	return rec, nil
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

// Sink is the Kafka writer surface; *kafka.Writer satisfies it.
type Sink interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Counters are exposed on /health.
type Counters struct {
	Received  uint64 `json:"received"`
	Rejected  uint64 `json:"rejected"`
	Forwarded uint64 `json:"forwarded"`
	Retries   uint64 `json:"retries"`
	Dropped   uint64 `json:"dropped"`
}

type Service struct {
	cfg  Config
	log  *slog.Logger
	sink Sink
	conn *bus.Connection // optional; state is published retained on bridge/state

	queue chan Record

	mu       sync.Mutex
	latest   map[string]Record
	counters Counters
	linkUp   bool

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

func New(cfg Config, sink Sink, log *slog.Logger, conn *bus.Connection) *Service {
	if cfg.Queue <= 0 {
		cfg.Queue = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		log:    log.With(slog.String("component", "bridge")),
		sink:   sink,
		conn:   conn,
		queue:  make(chan Record, cfg.Queue),
		latest: make(map[string]Record),
		sleep:  sleep,
		now:    time.Now,
	}
}

// Handle decodes one MQTT message, records it as latest and queues it for
// Kafka. Safe to call from the MQTT client's callback goroutine.
func (s *Service) Handle(topic string, payload []byte) {
	s.count(func(c *Counters) { c.Received++ })
	rec, err := Decode(topic, payload, s.now())
	if err != nil {
		s.count(func(c *Counters) { c.Rejected++ })
		s.log.Warn("rejected payload", slog.String("topic", topic), slog.String("code", string(errcode.Of(err))), slog.Any("error", err))
		return
	}
	s.mu.Lock()
	s.latest[topic] = rec
	s.mu.Unlock()

	for {
		select {
		case s.queue <- rec:
			return
		default:
		}
		select {
		case <-s.queue:
			s.count(func(c *Counters) { c.Dropped++ })
		default:
		}
	}
}

// Run forwards queued records until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.publishState("up", "forwarding", nil)
	for {
		select {
		case <-ctx.Done():
			s.publishState("idle", "stopped", nil)
			return ctx.Err()
		case rec := <-s.queue:
			if err := s.forward(ctx, rec); err != nil && ctx.Err() != nil {
				s.publishState("idle", "stopped", nil)
				return ctx.Err()
			}
		}
	}
}

// forward writes one record, retrying with doubling backoff.
func (s *Service) forward(ctx context.Context, rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(rec.Source), Value: value, Time: rec.ReceivedAt}

	backoff := backoffSeq(s.cfg.Kafka.RetryMin, s.cfg.Kafka.RetryMax)
	for attempt := 1; ; attempt++ {
		err := s.sink.WriteMessages(ctx, msg)
		if err == nil {
			s.count(func(c *Counters) { c.Forwarded++ })
			s.setLink(true)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.cfg.Kafka.MaxRetries > 0 && attempt > s.cfg.Kafka.MaxRetries {
			s.count(func(c *Counters) { c.Dropped++ })
			s.log.Error("dropping record", slog.String("id", rec.ID), slog.Int("attempts", attempt), slog.Any("error", err))
			return err
		}
		delay := backoff()
		s.count(func(c *Counters) { c.Retries++ })
		s.setLink(false)
		s.publishState("degraded", "kafka_write_failed_retrying", err)
		s.log.Warn("kafka write failed", slog.String("id", rec.ID), slog.Duration("retry_in", delay), slog.Any("error", err))
		if !s.sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

// Latest returns a copy of the most recent record per MQTT topic.
func (s *Service) Latest() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Record, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

func (s *Service) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

func (s *Service) count(f func(*Counters)) {
	s.mu.Lock()
	f(&s.counters)
	s.mu.Unlock()
}

func (s *Service) setLink(up bool) {
	s.mu.Lock()
	changed := s.linkUp != up
	s.linkUp = up
	s.mu.Unlock()
	if changed && up {
		s.publishState("up", "forwarding", nil)
	}
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func (s *Service) publishState(level, status string, err error) {
	if s.conn == nil {
		return
	}
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.T("bridge", "state"), payload, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
