// Package sensors adapts the CO2 and spectral drivers to typed readings with
// stable error codes.
package sensors

import (
	"context"
	"errors"

	"plantsense-go/drivers/as7341"
	"plantsense-go/drivers/scd4x"
	"plantsense-go/errcode"
	"plantsense-go/types"
	"plantsense-go/x/timex"
)

// CO2Driver is the subset of *scd4x.Device used here.
type CO2Driver interface {
	Read() (scd4x.Sample, error)
}

// SpectrumDriver is the subset of *as7341.Device used here.
type SpectrumDriver interface {
	Read() (as7341.Sample, error)
}

// CO2Reader produces types.CO2Value readings.
type CO2Reader struct {
	dev  CO2Driver
	Info types.SensorInfo
}

func NewCO2Reader(dev CO2Driver, bus string) *CO2Reader {
	return &CO2Reader{dev: dev, Info: types.SensorInfo{Sensor: "scd41", Addr: scd4x.Address, Bus: bus}}
}

// Read returns one reading. A failed or partial read never yields a value.
func (r *CO2Reader) Read(ctx context.Context) (types.CO2Value, error) {
	if err := ctx.Err(); err != nil {
		return types.CO2Value{}, err
	}
	if r.dev == nil {
		return types.CO2Value{}, &errcode.E{C: errcode.NotReady, Op: "co2.read", Msg: "no device"}
	}
	s, err := r.dev.Read()
	if err != nil {
		return types.CO2Value{}, classify("co2.read", err)
	}
	return types.CO2Value{CO2: s.CO2, CentiC: s.CentiC, CentiRH: s.CentiRH, TS: timex.NowMs()}, nil
}

// SpectrumReader produces types.SpectrumValue readings.
type SpectrumReader struct {
	dev  SpectrumDriver
	Info types.SensorInfo
}

func NewSpectrumReader(dev SpectrumDriver, bus string) *SpectrumReader {
	return &SpectrumReader{dev: dev, Info: types.SensorInfo{Sensor: "as7341", Addr: as7341.Address, Bus: bus}}
}

func (r *SpectrumReader) Read(ctx context.Context) (types.SpectrumValue, error) {
	if err := ctx.Err(); err != nil {
		return types.SpectrumValue{}, err
	}
	if r.dev == nil {
		return types.SpectrumValue{}, &errcode.E{C: errcode.NotReady, Op: "spectrum.read", Msg: "no device"}
	}
	s, err := r.dev.Read()
	if err != nil {
		return types.SpectrumValue{}, classify("spectrum.read", err)
	}
	return types.SpectrumValue{Channels: s.Channels, TS: timex.NowMs()}, nil
}

// classify maps driver sentinels onto errcode codes. Errors that already
// carry a code (bus errors from the register adapter) pass through.
func classify(op string, err error) error {
	var e *errcode.E
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, scd4x.ErrTimeout), errors.Is(err, as7341.ErrTimeout):
		return errcode.Wrap(errcode.Timeout, op, err)
	case errors.Is(err, scd4x.ErrNotReady), errors.Is(err, as7341.ErrNotReady):
		return errcode.Wrap(errcode.NotReady, op, err)
	case errors.Is(err, scd4x.ErrCRC):
		return errcode.Wrap(errcode.CRCMismatch, op, err)
	case errors.Is(err, scd4x.ErrShort):
		return errcode.Wrap(errcode.InvalidPayload, op, err)
	}
	return errcode.Wrap(errcode.Error, op, err)
}
