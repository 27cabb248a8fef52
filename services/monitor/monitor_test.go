package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plantsense-go/bus"
	"plantsense-go/errcode"
	"plantsense-go/services/power"
	"plantsense-go/services/telemetry"
	"plantsense-go/types"
)

type recorder struct{ events []string }

func (r *recorder) add(s string) { r.events = append(r.events, s) }

// session connects synchronously when accept is set.
type session struct {
	name       string
	rec        *recorder
	accept     bool
	publishErr error
	sup        *telemetry.Supervisor
	payloads   map[string]string
}

func (s *session) Connect(context.Context) error {
	s.rec.add("connect " + s.name)
	if s.accept {
		s.sup.Signal(true)
	}
	return nil
}
func (s *session) Disconnect() { s.rec.add("disconnect " + s.name) }
func (s *session) Publish(topic string, qos byte, retain bool, payload []byte) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.rec.add("publish " + topic)
	s.payloads[topic] = string(payload)
	return nil
}

type co2Src struct {
	rec *recorder
	v   types.CO2Value
	err error
}

func (c co2Src) Read(context.Context) (types.CO2Value, error) {
	c.rec.add("read co2")
	return c.v, c.err
}

type specSrc struct {
	rec *recorder
	v   types.SpectrumValue
	err error
}

func (c specSrc) Read(context.Context) (types.SpectrumValue, error) {
	c.rec.add("read spectrum")
	return c.v, c.err
}

type rig struct {
	rec      *recorder
	co2Sess  *session
	specSess *session
	m        *Monitor
	slept    []time.Duration
}

func newRig(t *testing.T, accept bool, co2 co2Src, spec specSrc, conn *bus.Connection) *rig {
	t.Helper()
	rec := &recorder{}
	r := &rig{rec: rec}
	r.co2Sess = &session{name: "co2", rec: rec, accept: accept, payloads: map[string]string{}}
	r.specSess = &session{name: "spectro", rec: rec, accept: accept, payloads: map[string]string{}}
	co2Link := telemetry.NewSupervisor("co2", r.co2Sess, nil)
	specLink := telemetry.NewSupervisor("spectro", r.specSess, nil)
	r.co2Sess.sup, r.specSess.sup = co2Link, specLink

	co2.rec, spec.rec = rec, rec
	r.m = New(Config{}, Deps{CO2: co2, Spectrum: spec, CO2Link: co2Link, SpectrumLink: specLink, Conn: conn})
	r.m.sleep = func(_ context.Context, d time.Duration) bool {
		r.slept = append(r.slept, d)
		rec.add("sleep " + d.String())
		return true
	}
	return r
}

var sample = types.CO2Value{CO2: 1000, CentiC: 2500, CentiRH: 5000}
var sixteen = types.SpectrumValue{Channels: [6]uint16{16, 16, 16, 16, 16, 16}}

func TestCycle_Order(t *testing.T) {
	r := newRig(t, true, co2Src{v: sample}, specSrc{v: sixteen}, nil)
	r.m.Cycle(context.Background())

	want := []string{
		"connect co2",
		"connect spectro",
		"read co2",
		"publish pico/scd41/data",
		"disconnect spectro",
		"connect spectro",
		"sleep 15s",
		"read spectrum",
		"publish pico/as7341/data",
		"disconnect co2",
		"connect co2",
	}
	if strings.Join(r.rec.events, "\n") != strings.Join(want, "\n") {
		t.Fatalf("events:\n%s", strings.Join(r.rec.events, "\n"))
	}
	if got := r.co2Sess.payloads["pico/scd41/data"]; got != `{"co2": 1000, "temperature": 25.00, "humidity": 50.00}` {
		t.Fatalf("co2 payload %s", got)
	}
	if got := r.specSess.payloads["pico/as7341/data"]; got != `{"ch0": 16, "ch1": 16, "ch2": 16, "ch3": 16, "ch4": 16, "ch5": 16}` {
		t.Fatalf("spectrum payload %s", got)
	}
	st := r.m.Stats()
	if st.Cycles != 1 || st.CO2Published != 1 || st.SpectrumPublished != 1 {
		t.Fatalf("stats %+v", st)
	}
}

func TestCycle_SkipsWhenNeitherConnected(t *testing.T) {
	r := newRig(t, false, co2Src{v: sample}, specSrc{v: sixteen}, nil)
	r.m.Cycle(context.Background())

	want := "connect co2\nconnect spectro"
	if got := strings.Join(r.rec.events, "\n"); got != want {
		t.Fatalf("events:\n%s", got)
	}
	if r.m.Stats().Skipped != 1 {
		t.Fatalf("stats %+v", r.m.Stats())
	}

	// next cycle retries both, no backoff
	r.m.Cycle(context.Background())
	if r.m.d.CO2Link.Attempts() != 2 || r.m.d.SpectrumLink.Attempts() != 2 {
		t.Fatal("expected a retry per cycle")
	}
}

func TestCycle_ReadFailurePublishesNothing(t *testing.T) {
	busErr := &errcode.E{C: errcode.BusError, Op: "i2c@0x62.read"}
	r := newRig(t, true, co2Src{err: busErr}, specSrc{v: sixteen}, nil)
	r.m.Cycle(context.Background())

	if _, ok := r.co2Sess.payloads["pico/scd41/data"]; ok {
		t.Fatal("published after read failure")
	}
	if _, ok := r.specSess.payloads["pico/as7341/data"]; !ok {
		t.Fatal("spectrum phase should still run")
	}
	if r.m.Stats().ReadErrors != 1 {
		t.Fatalf("stats %+v", r.m.Stats())
	}
}

func TestCycle_PublishFailureMarksLinkLost(t *testing.T) {
	r := newRig(t, true, co2Src{v: sample}, specSrc{v: sixteen}, nil)
	r.co2Sess.publishErr = errors.New("closed")
	r.m.cfg.SkipResets = true
	r.m.Cycle(context.Background())

	if r.m.d.CO2Link.Connected() {
		t.Fatal("co2 link should be down after publish error")
	}
	if !errors.Is(r.m.d.CO2Link.LastError(), errcode.PublishFailed) {
		t.Fatalf("last error %v", r.m.d.CO2Link.LastError())
	}
	if r.m.Stats().PublishErrors != 1 || r.m.Stats().SpectrumPublished != 1 {
		t.Fatalf("stats %+v", r.m.Stats())
	}
}

func TestCycle_PhaseGatedOnOwnLink(t *testing.T) {
	r := newRig(t, true, co2Src{v: sample}, specSrc{v: sixteen}, nil)
	r.co2Sess.accept = false
	r.m.cfg.SkipResets = true
	r.m.Cycle(context.Background())

	if _, ok := r.co2Sess.payloads["pico/scd41/data"]; ok {
		t.Fatal("published on a disconnected client")
	}
	if _, ok := r.specSess.payloads["pico/as7341/data"]; !ok {
		t.Fatal("spectrum not published")
	}
	if r.m.Stats().PublishSkipped != 1 {
		t.Fatalf("stats %+v", r.m.Stats())
	}
}

func TestRun_IdleDelayAndMode(t *testing.T) {
	r := newRig(t, false, co2Src{v: sample}, specSrc{v: sixteen}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	r.m.sleep = func(_ context.Context, d time.Duration) bool {
		r.slept = append(r.slept, d)
		n++
		if n == 1 {
			r.m.SetMode(power.High)
		}
		if n == 2 {
			cancel()
			return false
		}
		return true
	}
	if err := r.m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if len(r.slept) != 2 || r.slept[0] != 18*time.Second || r.slept[1] != time.Second {
		t.Fatalf("slept %v", r.slept)
	}
}

func TestCycle_MirrorsReadingsOnBus(t *testing.T) {
	b := bus.NewBus(8)
	r := newRig(t, true, co2Src{v: sample}, specSrc{v: sixteen}, b.NewConnection("monitor"))
	r.m.Cycle(context.Background())

	watch := b.NewConnection("watch")
	sub := watch.Subscribe(bus.T("sensor", "+", "value"))
	got := map[string]any{}
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case msg := <-sub.Channel():
			got[msg.Topic.At(1).(string)] = msg.Payload
		case <-timeout:
			t.Fatalf("got %d retained readings", len(got))
		}
	}
	if v := got["co2"].(types.CO2Value); v.CO2 != 1000 {
		t.Fatalf("co2 %+v", v)
	}
	if v := got["spectrum"].(types.SpectrumValue); v.Channels[5] != 16 {
		t.Fatalf("spectrum %+v", v)
	}
}
