package telemetry

import (
	"plantsense-go/types"
	"plantsense-go/x/conv"
)

// Default MQTT topics.
const (
	TopicCO2      = "pico/scd41/data"
	TopicSpectrum = "pico/as7341/data"
)

// FormatCO2 renders {"co2": <int>, "temperature": <float2>, "humidity": <float2>}.
// Pure: identical readings give identical bytes. The timestamp is not part of
// the payload.
func FormatCO2(v types.CO2Value) []byte {
	b := make([]byte, 0, 64)
	b = append(b, `{"co2": `...)
	b = conv.AppendUint(b, uint64(v.CO2))
	b = append(b, `, "temperature": `...)
	b = conv.AppendCenti(b, v.CentiC)
	b = append(b, `, "humidity": `...)
	b = conv.AppendCenti(b, v.CentiRH)
	b = append(b, '}')
	return b
}

// FormatSpectrum renders {"ch0": <uint>, ..., "ch5": <uint>}.
func FormatSpectrum(v types.SpectrumValue) []byte {
	b := make([]byte, 0, 96)
	b = append(b, '{')
	for i, c := range v.Channels {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, `"ch`...)
		b = append(b, byte('0'+i))
		b = append(b, `": `...)
		b = conv.AppendUint(b, uint64(c))
	}
	b = append(b, '}')
	return b
}
