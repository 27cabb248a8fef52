package bridge

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"plantsense-go/errcode"
	"plantsense-go/types"
)

// ParseCO2 decodes {"co2": <int>, "temperature": <float2>, "humidity": <float2>}.
// Decimals are converted to hundredths without going through float64.
func ParseCO2(p []byte) (types.CO2Value, error) {
	var raw struct {
		CO2         *json.Number `json:"co2"`
		Temperature *json.Number `json:"temperature"`
		Humidity    *json.Number `json:"humidity"`
	}
	if err := decodeStrict(p, &raw); err != nil {
		return types.CO2Value{}, errcode.Wrap(errcode.InvalidPayload, "bridge.ParseCO2", err)
	}
	if raw.CO2 == nil || raw.Temperature == nil || raw.Humidity == nil {
		return types.CO2Value{}, &errcode.E{C: errcode.InvalidPayload, Op: "bridge.ParseCO2", Msg: "missing field"}
	}
	co2, err := strconv.ParseUint(raw.CO2.String(), 10, 16)
	if err != nil {
		return types.CO2Value{}, errcode.Wrap(errcode.InvalidPayload, "bridge.ParseCO2", err)
	}
	c, err := parseCenti(raw.Temperature.String())
	if err != nil {
		return types.CO2Value{}, errcode.Wrap(errcode.InvalidPayload, "bridge.ParseCO2", err)
	}
	rh, err := parseCenti(raw.Humidity.String())
	if err != nil {
		return types.CO2Value{}, errcode.Wrap(errcode.InvalidPayload, "bridge.ParseCO2", err)
	}
	return types.CO2Value{CO2: uint16(co2), CentiC: c, CentiRH: rh}, nil
}

// ParseSpectrum decodes {"ch0": <uint>, ..., "ch5": <uint>}.
func ParseSpectrum(p []byte) (types.SpectrumValue, error) {
	var raw map[string]json.Number
	if err := decodeStrict(p, &raw); err != nil {
		return types.SpectrumValue{}, errcode.Wrap(errcode.InvalidPayload, "bridge.ParseSpectrum", err)
	}
	var v types.SpectrumValue
	for i := range v.Channels {
		n, ok := raw["ch"+strconv.Itoa(i)]
		if !ok {
			return types.SpectrumValue{}, &errcode.E{C: errcode.InvalidPayload, Op: "bridge.ParseSpectrum", Msg: "missing ch" + strconv.Itoa(i)}
		}
		u, err := strconv.ParseUint(n.String(), 10, 16)
		if err != nil {
			return types.SpectrumValue{}, errcode.Wrap(errcode.InvalidPayload, "bridge.ParseSpectrum", err)
		}
		v.Channels[i] = uint16(u)
	}
	return v, nil
}

func decodeStrict(p []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseCenti parses a decimal with at most two fractional digits.
func parseCenti(s string) (int32, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, &errcode.E{C: errcode.InvalidPayload, Op: "bridge.parseCenti", Msg: "more than two decimals: " + s}
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 32)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseInt(frac, 10, 32)
	if err != nil {
		return 0, err
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return int32(v), nil
}
