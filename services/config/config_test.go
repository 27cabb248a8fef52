// config/config_test.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"plantsense-go/bus"
	"plantsense-go/errcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "tcp://5.196.78.28:1883", cfg.MQTT.Broker)
	assert.Equal(t, "PicoSensorClient", cfg.MQTT.ClientID)
	assert.Equal(t, 60*time.Second, cfg.MQTT.KeepAlive)
	assert.Equal(t, uint16(0x62), cfg.CO2.Address)
	assert.Equal(t, uint16(0x39), cfg.Spectrometer.Address)
	assert.Equal(t, 15*time.Second, cfg.Loop.PhaseGap)
	assert.Equal(t, 18*time.Second, cfg.Loop.IdleDelay)
	assert.Equal(t, 8*time.Second, cfg.Console.Timeout)
	require.Len(t, cfg.I2C.I2C, 2)
	assert.NoError(t, cfg.Validate())
}

func TestEmbedded_MatchesDefaults(t *testing.T) {
	cfg, err := Embedded("pico")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.MQTT, cfg.MQTT)
	assert.Equal(t, def.CO2, cfg.CO2)
	assert.Equal(t, def.Spectrometer, cfg.Spectrometer)
	assert.Equal(t, def.I2C, cfg.I2C)
	assert.Equal(t, def.Loop, cfg.Loop)
	assert.Equal(t, def.Console, cfg.Console)
}

func TestEmbedded_UnknownDevice(t *testing.T) {
	_, err := Embedded("esp32")
	assert.ErrorIs(t, err, errcode.Unsupported)
}

func TestParse_Overlay(t *testing.T) {
	cfg, err := Parse([]byte(`
mqtt:
  broker: tcp://broker.local:1883
  unique_ids: true
co2:
  layout: legacy
loop:
  power_mode: high
i2c:
  buses:
    - {id: i2c0, dev: "1"}
    - {id: i2c1, dev: "3"}
`))
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.MQTT.UniqueIDs)
	assert.Equal(t, "PicoSensorClient", cfg.MQTT.ClientID, "untouched keys keep defaults")
	assert.Equal(t, "legacy", cfg.CO2.Layout)
	assert.Equal(t, "high", cfg.Loop.PowerMode)
	assert.Equal(t, "3", cfg.I2C.I2C[1].Dev)
	assert.Equal(t, 250*time.Millisecond, cfg.I2C.TxTimeout)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":       "mqtt: [",
		"broker":       "mqtt: {broker: \"\"}",
		"unknown bus":  "co2: {bus: i2c7}",
		"address":      "spectrometer: {address: 0x80}",
		"layout":       "co2: {layout: fancy}",
		"mode":         "loop: {power_mode: turbo}",
		"plant":        "console: {default_plant: Cactus}",
		"duplicate id": "i2c: {buses: [{id: i2c0}, {id: i2c0}]}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			c := errcode.Of(err)
			assert.Contains(t, []errcode.Code{errcode.InvalidParams, errcode.InvalidPayload}, c)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "plantsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte("heartbeat: {interval: 5s}\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Heartbeat.Interval)
}

func TestService_PublishesRetainedPerSection(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	sub := conn.Subscribe(bus.T(configPrefix, "#"))

	cfg := Default()
	cfg.Heartbeat.Interval = 3 * time.Second
	NewService(cfg).Start(context.Background(), conn)

	got := map[string]any{}
	deadline := time.After(time.Second)
	for len(got) < len(cfg.Sections()) {
		select {
		case m := <-sub.Channel():
			require.True(t, m.Retained)
			got[m.Topic.At(1).(string)] = m.Payload
		case <-deadline:
			t.Fatalf("got %d sections", len(got))
		}
	}
	hb, ok := got["heartbeat"].(HeartbeatConfig)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, hb.Interval)
	assert.IsType(t, MQTTConfig{}, got["mqtt"])

	// late subscribers see the retained copy
	late := b.NewConnection("late").Subscribe(bus.T(configPrefix, "loop"))
	select {
	case m := <-late.Channel():
		assert.Equal(t, cfg.Loop, m.Payload)
	case <-time.After(time.Second):
		t.Fatal("no retained loop section")
	}
}

func TestService_RedactsCredentials(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	wifiSub := conn.Subscribe(bus.T(configPrefix, "wifi"))
	mqttSub := conn.Subscribe(bus.T(configPrefix, "mqtt"))

	cfg := Default()
	cfg.WiFi.SSID = "greenhouse"
	cfg.WiFi.Passphrase = "hunter22"
	cfg.MQTT.Password = "s3cret"
	svc := NewService(cfg)
	svc.Start(context.Background(), conn)

	select {
	case m := <-wifiSub.Channel():
		w, ok := m.Payload.(WiFiConfig)
		require.True(t, ok)
		assert.Equal(t, "greenhouse", w.SSID)
		assert.Equal(t, "***", w.Passphrase)
	case <-time.After(time.Second):
		t.Fatal("no wifi section")
	}
	select {
	case m := <-mqttSub.Channel():
		mc, ok := m.Payload.(MQTTConfig)
		require.True(t, ok)
		assert.Equal(t, "***", mc.Password)
	case <-time.After(time.Second):
		t.Fatal("no mqtt section")
	}

	assert.Equal(t, "hunter22", cfg.WiFi.Passphrase)
	assert.Equal(t, "s3cret", cfg.MQTT.Password)
	assert.Empty(t, Default().Sections()["mqtt"].(MQTTConfig).Password)
}
