package types

// Value payloads appear on sensor/<kind>/value (retained).
// Fixed-point, small types to suit TinyGo.

// CO2Value is one decoded CO2/temperature/humidity reading.
type CO2Value struct {
	CO2     uint16 `json:"co2"`      // ppm
	CentiC  int32  `json:"centi_c"`  // hundredths of °C (2500 => 25.00°C)
	CentiRH int32  `json:"centi_rh"` // hundredths of %RH
	TS      int64  `json:"ts_ms"`
}

// SpectrumValue holds six raw channel intensities, not ordered by wavelength.
type SpectrumValue struct {
	Channels [6]uint16 `json:"channels"`
	TS       int64     `json:"ts_ms"`
}
