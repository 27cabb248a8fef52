// Package config loads the device configuration (YAML) and publishes each
// section retained on the bus under config/<section>.
package config

import (
	"context"
	"os"
	"time"

	"plantsense-go/bus"
	"plantsense-go/errcode"
	"plantsense-go/services/console"
	"plantsense-go/services/hal"
	"plantsense-go/services/plants"
	"plantsense-go/services/power"

	"gopkg.in/yaml.v3"
)

const configPrefix = "config"

type Config struct {
	Device       DeviceConfig       `yaml:"device"`
	WiFi         WiFiConfig         `yaml:"wifi"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	I2C          hal.Plan           `yaml:"i2c"`
	CO2          CO2Config          `yaml:"co2"`
	Spectrometer SpectrometerConfig `yaml:"spectrometer"`
	Loop         LoopConfig         `yaml:"loop"`
	Heartbeat    HeartbeatConfig    `yaml:"heartbeat"`
	Console      ConsoleConfig      `yaml:"console"`
}

type DeviceConfig struct {
	ID        string        `yaml:"id"`
	BootDelay time.Duration `yaml:"boot_delay"` // USB CDC enumeration
	NetSettle time.Duration `yaml:"net_settle"` // after Wi-Fi join
}

type WiFiConfig struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
}

type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	UniqueIDs      bool          `yaml:"unique_ids"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	StatusTopic    string        `yaml:"status_topic"`
	TopicCO2       string        `yaml:"topic_co2"`
	TopicSpectrum  string        `yaml:"topic_spectrum"`
}

type CO2Config struct {
	Bus          string        `yaml:"bus"`
	Address      uint16        `yaml:"address"`
	Layout       string        `yaml:"layout"` // "datasheet" | "legacy"
	PollInterval time.Duration `yaml:"poll_interval"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

type SpectrometerConfig struct {
	Bus            string `yaml:"bus"`
	Address        uint16 `yaml:"address"`
	Gain           uint8  `yaml:"gain"`
	ATime          uint8  `yaml:"atime"`
	ReinitEachRead bool   `yaml:"reinit_each_read"`
	SkipReadyCheck bool   `yaml:"skip_ready_check"`
}

type LoopConfig struct {
	PhaseGap   time.Duration `yaml:"phase_gap"`
	IdleDelay  time.Duration `yaml:"idle_delay"`
	PowerMode  string        `yaml:"power_mode"`
	SkipResets bool          `yaml:"skip_resets"`
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type ConsoleConfig struct {
	Enabled      bool               `yaml:"enabled"`
	Timeout      time.Duration      `yaml:"timeout"`
	Pause        time.Duration      `yaml:"pause"`
	MaxPrompts   int                `yaml:"max_prompts"`
	DefaultPlant string             `yaml:"default_plant"`
	UART         console.UARTConfig `yaml:"uart"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Device: DeviceConfig{ID: "pico", BootDelay: 10 * time.Second, NetSettle: 10 * time.Second},
		MQTT: MQTTConfig{
			Broker:         "tcp://5.196.78.28:1883",
			ClientID:       "PicoSensorClient",
			KeepAlive:      60 * time.Second,
			ConnectTimeout: 10 * time.Second,
			StatusTopic:    "pico/status",
			TopicCO2:       "pico/scd41/data",
			TopicSpectrum:  "pico/as7341/data",
		},
		I2C: hal.DefaultPlan(),
		CO2: CO2Config{
			Bus:          "i2c1",
			Address:      0x62,
			Layout:       "datasheet",
			PollInterval: 100 * time.Millisecond,
			ReadyTimeout: 6 * time.Second,
		},
		Spectrometer: SpectrometerConfig{Bus: "i2c0", Address: 0x39, Gain: 0x05, ATime: 0x40},
		Loop:         LoopConfig{PhaseGap: 15 * time.Second, IdleDelay: 18 * time.Second},
		Heartbeat:    HeartbeatConfig{Interval: 30 * time.Second},
		Console: ConsoleConfig{
			Enabled:      true,
			Timeout:      8 * time.Second,
			Pause:        2 * time.Second,
			DefaultPlant: "Lettuce",
			UART:         console.UARTConfig{ID: "uart1", TX: 4, RX: 5, Baud: 115200},
		},
	}
}

// Parse overlays YAML onto the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidPayload, "config.Parse", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errcode.Wrap(errcode.Error, "config.Load", err)
	}
	return Parse(data)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.Validate", Msg: msg}
	}
	if c.MQTT.Broker == "" {
		return bad("mqtt.broker is required")
	}
	if c.MQTT.ClientID == "" {
		return bad("mqtt.client_id is required")
	}
	if c.MQTT.TopicCO2 == "" || c.MQTT.TopicSpectrum == "" {
		return bad("mqtt topics are required")
	}
	buses := map[string]bool{}
	for _, b := range c.I2C.I2C {
		if b.ID == "" {
			return bad("i2c bus without id")
		}
		if buses[b.ID] {
			return bad("duplicate i2c bus " + b.ID)
		}
		buses[b.ID] = true
	}
	if !buses[c.CO2.Bus] {
		return bad("co2.bus " + c.CO2.Bus + " not in i2c plan")
	}
	if !buses[c.Spectrometer.Bus] {
		return bad("spectrometer.bus " + c.Spectrometer.Bus + " not in i2c plan")
	}
	if c.CO2.Address > hal.MaxAddr || c.Spectrometer.Address > hal.MaxAddr {
		return bad("sensor address is not 7-bit")
	}
	switch c.CO2.Layout {
	case "", "datasheet", "legacy":
	default:
		return bad("co2.layout must be datasheet or legacy")
	}
	if _, err := power.ParseMode(c.Loop.PowerMode); err != nil {
		return bad("loop.power_mode " + c.Loop.PowerMode)
	}
	if c.Loop.PhaseGap < 0 || c.Loop.IdleDelay < 0 || c.Heartbeat.Interval < 0 {
		return bad("negative duration")
	}
	if c.Console.DefaultPlant != "" {
		if _, ok := plants.ByName(c.Console.DefaultPlant); !ok {
			return bad("console.default_plant " + c.Console.DefaultPlant)
		}
	}
	return nil
}

const redacted = "***"

// Sections returns the config keyed by its top-level section name.
// Credentials are masked; sections are published retained.
func (c Config) Sections() map[string]any {
	wifi, mqtt := c.WiFi, c.MQTT
	if wifi.Passphrase != "" {
		wifi.Passphrase = redacted
	}
	if mqtt.Password != "" {
		mqtt.Password = redacted
	}
	return map[string]any{
		"device":       c.Device,
		"wifi":         wifi,
		"mqtt":         mqtt,
		"i2c":          c.I2C,
		"co2":          c.CO2,
		"spectrometer": c.Spectrometer,
		"loop":         c.Loop,
		"heartbeat":    c.Heartbeat,
		"console":      c.Console,
	}
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service { return &Service{cfg: cfg} }

// Publish posts every section retained on config/<section>.
func (s *Service) Publish(conn *bus.Connection) {
	for k, v := range s.cfg.Sections() {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
}

// Start publishes the configuration in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		s.Publish(conn)
	}()
}
