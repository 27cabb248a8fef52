package telemetry

import (
	"bytes"
	"testing"

	"plantsense-go/types"
)

func TestFormatCO2(t *testing.T) {
	cases := []struct {
		v    types.CO2Value
		want string
	}{
		{types.CO2Value{CO2: 1000, CentiC: 2500, CentiRH: 5000}, `{"co2": 1000, "temperature": 25.00, "humidity": 50.00}`},
		{types.CO2Value{CO2: 0, CentiC: -4500, CentiRH: 0}, `{"co2": 0, "temperature": -45.00, "humidity": 0.00}`},
		{types.CO2Value{CO2: 65535, CentiC: -5, CentiRH: 7}, `{"co2": 65535, "temperature": -0.05, "humidity": 0.07}`},
		{types.CO2Value{CO2: 812, CentiC: 2137, CentiRH: 4410}, `{"co2": 812, "temperature": 21.37, "humidity": 44.10}`},
		// legacy decode of 03 E8 00 19 00 03
		{types.CO2Value{CO2: 1000, CentiC: 6400, CentiRH: 3}, `{"co2": 1000, "temperature": 64.00, "humidity": 0.03}`},
	}
	for _, tc := range cases {
		if got := string(FormatCO2(tc.v)); got != tc.want {
			t.Errorf("FormatCO2(%+v) = %s, want %s", tc.v, got, tc.want)
		}
	}
}

func TestFormatSpectrum(t *testing.T) {
	v := types.SpectrumValue{Channels: [6]uint16{16, 16, 16, 16, 16, 16}}
	want := `{"ch0": 16, "ch1": 16, "ch2": 16, "ch3": 16, "ch4": 16, "ch5": 16}`
	if got := string(FormatSpectrum(v)); got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	v = types.SpectrumValue{Channels: [6]uint16{0, 1, 255, 256, 4660, 65535}}
	want = `{"ch0": 0, "ch1": 1, "ch2": 255, "ch3": 256, "ch4": 4660, "ch5": 65535}`
	if got := string(FormatSpectrum(v)); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestFormat_PureIgnoresTimestamp(t *testing.T) {
	a := types.CO2Value{CO2: 415, CentiC: 1999, CentiRH: 6001, TS: 1}
	b := a
	b.TS = 99
	if !bytes.Equal(FormatCO2(a), FormatCO2(b)) {
		t.Fatal("co2 payload depends on timestamp")
	}
	s := types.SpectrumValue{Channels: [6]uint16{1, 2, 3, 4, 5, 6}, TS: 5}
	if !bytes.Equal(FormatSpectrum(s), FormatSpectrum(s)) {
		t.Fatal("spectrum payload not deterministic")
	}
}
