// Package scd4x provides a driver for the Sensirion SCD40/SCD41 CO2,
// temperature and humidity sensor.
//
// Two bus layouts are supported:
//
//	LayoutDatasheet  // periodic mode, data-ready polling, 9-byte CRC-checked frame
//	LayoutLegacy     // one command, fixed 500 ms settle, 6-byte frame, no CRC
//
// The legacy layout reproduces the bus behaviour of earlier Pico firmware so
// that deployed dashboards keep comparable numbers. New installs should use
// the datasheet layout.
//
// Values are fixed-point: hundredths of °C and hundredths of %RH.
package scd4x

import (
	"errors"
	"time"

	"plantsense-go/errcode"
	"plantsense-go/services/hal"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x62

// Commands (16-bit, sent MSB first).
const (
	cmdStartPeriodic   = 0x21B1
	cmdStopPeriodic    = 0x3F86
	cmdReadMeasurement = 0xEC05
	cmdDataReady       = 0xE4B8
	cmdReinit          = 0x3646
	cmdWakeUp          = 0x36F6
	cmdSerialNumber    = 0x3682

	dataReadyMask = 0x07FF
)

// Execution times from the datasheet.
const (
	execRead   = 1 * time.Millisecond
	execStop   = 500 * time.Millisecond
	execReinit = 20 * time.Millisecond
	execWakeUp = 30 * time.Millisecond
)

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("scd4x: timeout")
	ErrNotReady = errors.New("scd4x: not ready")
	ErrCRC      = errors.New("scd4x: crc mismatch")
	ErrShort    = errors.New("scd4x: short frame")
)

// Layout selects the measurement transaction and frame format.
type Layout uint8

const (
	LayoutDatasheet Layout = iota
	LayoutLegacy
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x62 if zero.
	Address uint16
	Layout  Layout
	// PollInterval is used by Read() between data-ready checks. Default 100 ms.
	PollInterval time.Duration
	// ReadyTimeout bounds the total wait in Read(). Default 6 s (one periodic
	// interval plus margin).
	ReadyTimeout time.Duration
	// SettleDelay is the blind wait of the legacy layout. Default 500 ms.
	SettleDelay time.Duration
	// SkipStart leaves the measurement mode untouched in Configure.
	SkipStart bool
}

// Device wraps an I2C connection to an SCD4x device.
type Device struct {
	bus drivers.I2C
	io  hal.Device
	cfg Config

	buf     [9]byte // reuse buffer to avoid allocations
	last    Sample
	started bool // periodic measurement confirmed running
	sleep   func(time.Duration)
}

// New creates a new SCD4x connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, sleep: time.Sleep}
}

// Configure applies defaults and, in the datasheet layout, (re)starts
// periodic measurement.
func (d *Device) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address == 0 {
		c.Address = Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 6 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	io, err := hal.NewDevice(d.bus, c.Address)
	if err != nil {
		return err
	}
	d.io, d.cfg = io, c

	if c.Layout == LayoutLegacy || c.SkipStart {
		d.started = true
		return nil
	}
	return d.start()
}

// start brings the sensor into periodic mode. A sensor left in periodic mode
// ignores most commands, so it is stopped first. Read retries this until it
// succeeds.
func (d *Device) start() error {
	d.started = false
	_ = d.WakeUp()
	_ = d.StopPeriodic()
	if err := d.StartPeriodic(); err != nil {
		return err
	}
	d.started = true
	return nil
}

func (d *Device) configured() bool { return d.cfg.PollInterval != 0 }

func (d *Device) command(cmd uint16) error {
	return d.io.Write([]byte{byte(cmd >> 8), byte(cmd)})
}

// StartPeriodic starts periodic measurement (one sample every ~5 s).
func (d *Device) StartPeriodic() error { return d.command(cmdStartPeriodic) }

// StopPeriodic stops periodic measurement and waits the mandated 500 ms.
func (d *Device) StopPeriodic() error {
	if err := d.command(cmdStopPeriodic); err != nil {
		return err
	}
	d.sleep(execStop)
	return nil
}

// Reinit reloads user settings from EEPROM. Only valid when idle.
func (d *Device) Reinit() error {
	if err := d.command(cmdReinit); err != nil {
		return err
	}
	d.sleep(execReinit)
	return nil
}

// WakeUp wakes the sensor from sleep. The sensor does not ACK this command,
// so the bus result is returned only for logging.
func (d *Device) WakeUp() error {
	err := d.command(cmdWakeUp)
	d.sleep(execWakeUp)
	return err
}

// SerialNumber returns the 48-bit serial number. Only valid when idle.
func (d *Device) SerialNumber() (uint64, error) {
	words, err := d.readWords(cmdSerialNumber)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// DataReady reports whether a new measurement can be read.
func (d *Device) DataReady() (bool, error) {
	if err := d.command(cmdDataReady); err != nil {
		return false, err
	}
	d.sleep(execRead)
	p := d.buf[:3]
	if err := d.io.ReadInto(p); err != nil {
		return false, err
	}
	if CRC8(p[:2]) != p[2] {
		return false, ErrCRC
	}
	w := uint16(p[0])<<8 | uint16(p[1])
	return w&dataReadyMask != 0, nil
}

// Collect reads one measurement if ready. ErrNotReady is returned while the
// sensor has no new sample.
func (d *Device) Collect(out *Sample) error {
	if !d.configured() {
		if err := d.Configure(); err != nil {
			return err
		}
	}
	if d.cfg.Layout == LayoutLegacy {
		return d.collectLegacy(out)
	}
	ready, err := d.DataReady()
	if err != nil {
		return err
	}
	if !ready {
		return ErrNotReady
	}
	if err := d.command(cmdReadMeasurement); err != nil {
		return err
	}
	d.sleep(execRead)
	if err := d.io.ReadInto(d.buf[:9]); err != nil {
		return err
	}
	s, err := DecodeMeasurement(d.buf[:9])
	if err != nil {
		return err
	}
	d.last = s
	if out != nil {
		*out = s
	}
	return nil
}

func (d *Device) collectLegacy(out *Sample) error {
	if err := d.command(cmdReadMeasurement); err != nil {
		return err
	}
	d.sleep(d.cfg.SettleDelay)
	if err := d.io.ReadInto(d.buf[:6]); err != nil {
		return err
	}
	s, err := DecodeLegacy(d.buf[:6])
	if err != nil {
		return err
	}
	d.last = s
	if out != nil {
		*out = s
	}
	return nil
}

// Read performs a full measurement: bounded data-ready polling followed by
// the frame read. In the legacy layout it is a single blind-delay cycle.
// Periodic mode is (re)started first if the last start or a bus transaction
// failed.
func (d *Device) Read() (Sample, error) {
	if !d.configured() {
		if err := d.Configure(); err != nil {
			return Sample{}, err
		}
	} else if !d.started {
		if err := d.start(); err != nil {
			return Sample{}, err
		}
	}
	tries := int(d.cfg.ReadyTimeout/d.cfg.PollInterval) + 1
	for i := 0; ; i++ {
		var s Sample
		err := d.Collect(&s)
		switch err {
		case nil:
			return s, nil
		case ErrNotReady:
			if i+1 >= tries {
				return Sample{}, ErrTimeout
			}
			d.sleep(d.cfg.PollInterval)
		default:
			if errors.Is(err, errcode.BusError) && d.cfg.Layout == LayoutDatasheet && !d.cfg.SkipStart {
				d.started = false
			}
			return Sample{}, err
		}
	}
}

// Last returns the most recent successful sample.
func (d *Device) Last() Sample { return d.last }

func (d *Device) readWords(cmd uint16) ([3]uint16, error) {
	var words [3]uint16
	if err := d.command(cmd); err != nil {
		return words, err
	}
	d.sleep(execRead)
	p := d.buf[:9]
	if err := d.io.ReadInto(p); err != nil {
		return words, err
	}
	for i := range words {
		w := p[i*3 : i*3+3]
		if CRC8(w[:2]) != w[2] {
			return words, ErrCRC
		}
		words[i] = uint16(w[0])<<8 | uint16(w[1])
	}
	return words, nil
}
