// Package monitor runs the read-and-publish cycle: check both links, read
// and publish the CO2 sensor, recycle the spectrometer link, wait, read and
// publish the spectrometer, recycle the CO2 link, then idle.
package monitor

import (
	"context"
	"sync"
	"time"

	"plantsense-go/bus"
	"plantsense-go/services/power"
	"plantsense-go/services/telemetry"
	"plantsense-go/types"
	"plantsense-go/x/timex"
)

// CO2Source yields CO2 readings.
type CO2Source interface {
	Read(ctx context.Context) (types.CO2Value, error)
}

// SpectrumSource yields spectral readings.
type SpectrumSource interface {
	Read(ctx context.Context) (types.SpectrumValue, error)
}

// Config holds loop timing and topics. Zero values select the defaults.
type Config struct {
	TopicCO2      string        // default "pico/scd41/data"
	TopicSpectrum string        // default "pico/as7341/data"
	PhaseGap      time.Duration // between the two phases; default 15 s
	IdleDelay     time.Duration // after each cycle; default 18 s
	// SkipResets disables the per-cycle disconnect/reconnect of the
	// opposite client.
	SkipResets bool
}

// Deps are the collaborators of one monitor.
type Deps struct {
	CO2          CO2Source
	Spectrum     SpectrumSource
	CO2Link      *telemetry.Supervisor
	SpectrumLink *telemetry.Supervisor
	Conn         *bus.Connection // optional; readings and state are mirrored retained
}

// Stats are cumulative loop counters.
type Stats struct {
	Cycles            uint32
	Skipped           uint32
	CO2Published      uint32
	SpectrumPublished uint32
	ReadErrors        uint32
	PublishErrors     uint32
	PublishSkipped    uint32
}

type Monitor struct {
	cfg Config
	d   Deps
	pub telemetry.Publisher

	mu    sync.Mutex
	mode  power.Mode
	stats Stats

	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cfg Config, d Deps) *Monitor {
	if cfg.TopicCO2 == "" {
		cfg.TopicCO2 = telemetry.TopicCO2
	}
	if cfg.TopicSpectrum == "" {
		cfg.TopicSpectrum = telemetry.TopicSpectrum
	}
	if cfg.PhaseGap <= 0 {
		cfg.PhaseGap = 15 * time.Second
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = 18 * time.Second
	}
	return &Monitor{cfg: cfg, d: d, sleep: sleep}
}

// SetMode sets the power mode. A set mode replaces the idle delay.
func (m *Monitor) SetMode(mode power.Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	println("[monitor] power mode:", mode.String())
}

// IdleDelay returns the current delay between cycles.
func (m *Monitor) IdleDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if iv := m.mode.Interval(); iv > 0 {
		return iv
	}
	return m.cfg.IdleDelay
}

func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Monitor) count(f func(*Stats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}

// Run cycles until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.publishState("running", "started")
	defer m.publishState("stopped", "context_done")
	for {
		m.Cycle(ctx)
		if !m.sleep(ctx, m.IdleDelay()) {
			return ctx.Err()
		}
	}
}

// Cycle runs one iteration without the trailing idle delay.
func (m *Monitor) Cycle(ctx context.Context) {
	m.count(func(s *Stats) { s.Cycles++ })
	println("[monitor] checking links")
	m.d.CO2Link.Check(ctx)
	m.d.SpectrumLink.Check(ctx)

	if !m.d.CO2Link.Connected() && !m.d.SpectrumLink.Connected() {
		println("[monitor] not connected, skipping publish")
		m.count(func(s *Stats) { s.Skipped++ })
		return
	}

	m.phaseCO2(ctx)
	if !m.cfg.SkipResets {
		m.d.SpectrumLink.Reset(ctx)
	}
	if !m.sleep(ctx, m.cfg.PhaseGap) {
		return
	}
	m.phaseSpectrum(ctx)
	if !m.cfg.SkipResets {
		m.d.CO2Link.Reset(ctx)
	}
}

func (m *Monitor) phaseCO2(ctx context.Context) {
	v, err := m.d.CO2.Read(ctx)
	if err != nil {
		println("[monitor] co2 read failed:", err.Error())
		m.count(func(s *Stats) { s.ReadErrors++ })
		return
	}
	println("[monitor] co2", v.CO2, "ppm, centi-C", v.CentiC, "centi-RH", v.CentiRH)
	m.mirror(bus.T("sensor", string(types.KindCO2), "value"), v)
	m.publish(m.d.CO2Link, m.cfg.TopicCO2, telemetry.FormatCO2(v), func(s *Stats) { s.CO2Published++ })
}

func (m *Monitor) phaseSpectrum(ctx context.Context) {
	v, err := m.d.Spectrum.Read(ctx)
	if err != nil {
		println("[monitor] spectrum read failed:", err.Error())
		m.count(func(s *Stats) { s.ReadErrors++ })
		return
	}
	m.mirror(bus.T("sensor", string(types.KindSpectrum), "value"), v)
	m.publish(m.d.SpectrumLink, m.cfg.TopicSpectrum, telemetry.FormatSpectrum(v), func(s *Stats) { s.SpectrumPublished++ })
}

func (m *Monitor) publish(link *telemetry.Supervisor, topic string, payload []byte, ok func(*Stats)) {
	if !link.Connected() {
		println("[monitor]", link.Name(), "not connected, skipping", topic)
		m.count(func(s *Stats) { s.PublishSkipped++ })
		return
	}
	if err := m.pub.Publish(link.Session(), topic, payload); err != nil {
		m.count(func(s *Stats) { s.PublishErrors++ })
		link.Lost(err)
		return
	}
	println("[monitor] published", topic)
	m.count(ok)
}

func (m *Monitor) mirror(t bus.Topic, v any) {
	if m.d.Conn == nil {
		return
	}
	m.d.Conn.Publish(m.d.Conn.NewMessage(t, v, true))
}

func (m *Monitor) publishState(level, status string) {
	if m.d.Conn == nil {
		return
	}
	st := types.MonitorState{Level: level, Status: status, TS: timex.NowMs()}
	m.d.Conn.Publish(m.d.Conn.NewMessage(bus.T("monitor", "state"), st, true))
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
