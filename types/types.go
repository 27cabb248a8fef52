package types

// ---- Link state (retained at link/<client>/state) ----

// LinkState is the connection state of one network client.
type LinkState uint8

const (
	LinkDisconnected LinkState = iota
	LinkConnected
)

func (s LinkState) String() string {
	if s == LinkConnected {
		return "connected"
	}
	return "disconnected"
}

type LinkStatus struct {
	Client string    `json:"client"`
	State  LinkState `json:"state"`
	TS     int64     `json:"ts_ms"`
	Error  string    `json:"error,omitempty"` // machine-readable short code
}

// ---- Monitor state (retained at monitor/state) ----

type MonitorState struct {
	Level  string `json:"level"`  // "idle", "running", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Sensor info (retained at sensor/<kind>/info) ----

type Kind string

const (
	KindCO2      Kind = "co2"
	KindSpectrum Kind = "spectrum"
)

type SensorInfo struct {
	Sensor string `json:"sensor"` // "scd41", "as7341"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "i2c0", ...
}
