// Package as7341 provides a driver for the AMS AS7341 multi-channel spectral
// sensor. Only the six ADC channel results are exposed; channel-to-wavelength
// mapping depends on the SMUX configuration and is left at the power-on
// default.
//
//	d.Configure(cfg)      // power on, enable spectral measurement, set gain/ATIME
//	s, err := d.Read()    // bounded AVALID polling, then six paired reads
//
// Each channel is read as a low-byte register read followed by a high-byte
// register read, each its own write+read transaction.
package as7341

import (
	"errors"
	"time"

	"plantsense-go/services/hal"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x39

// Registers and bits.
const (
	regEnable  = 0x80
	regATime   = 0x81
	regCh0Low  = 0x95
	regStatus2 = 0xA3
	regCfg1    = 0xAA

	enablePON  = 0x01
	enableSPEN = 0x02

	status2AValid = 0x40
)

// Default analogue settings.
const (
	DefaultGain  = 0x05 // 16x
	DefaultATime = 0x40
)

// NumChannels is the number of ADC channels read per sample.
const NumChannels = 6

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("as7341: timeout")
	ErrNotReady = errors.New("as7341: not ready")
)

// Config controls non-hardware behaviour. All fields are optional except
// where noted.
type Config struct {
	// Address defaults to 0x39 if zero.
	Address uint16
	// Gain is written to CFG1. Zero selects DefaultGain.
	Gain byte
	// ATime is the integration time register. Zero selects DefaultATime.
	ATime byte
	// ReinitEachRead re-runs the power-up sequence before every Read, as
	// earlier firmware did. Costs ~120 ms per read.
	ReinitEachRead bool
	// SkipReadyCheck reads the channels without waiting for AVALID.
	SkipReadyCheck bool
	// PollInterval is used between AVALID checks. Default 10 ms.
	PollInterval time.Duration
	// ReadyTimeout bounds the AVALID wait. Default 500 ms.
	ReadyTimeout time.Duration
}

// Sample holds raw channel counts.
type Sample struct {
	Channels [NumChannels]uint16
}

// Device wraps an I2C connection to an AS7341 device.
type Device struct {
	bus drivers.I2C
	io  hal.Device
	cfg Config

	inited bool
	last   Sample
	sleep  func(time.Duration)
}

// New creates a new AS7341 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, sleep: time.Sleep}
}

// Configure applies config and runs the power-up sequence once.
func (d *Device) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address == 0 {
		c.Address = Address
	}
	if c.Gain == 0 {
		c.Gain = DefaultGain
	}
	if c.ATime == 0 {
		c.ATime = DefaultATime
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 500 * time.Millisecond
	}
	io, err := hal.NewDevice(d.bus, c.Address)
	if err != nil {
		return err
	}
	d.io, d.cfg = io, c
	return d.Init()
}

func (d *Device) configured() bool { return d.cfg.PollInterval != 0 }

// Init runs the power-up sequence: clear, PON, PON|SP_EN with settle, then
// gain and integration time.
func (d *Device) Init() error {
	d.inited = false
	steps := []struct {
		reg, val byte
		settle   time.Duration
	}{
		{regEnable, 0x00, 10 * time.Millisecond},
		{regEnable, enablePON, 10 * time.Millisecond},
		{regEnable, enablePON | enableSPEN, 100 * time.Millisecond},
		{regCfg1, d.cfg.Gain, 0},
		{regATime, d.cfg.ATime, 0},
	}
	for _, s := range steps {
		if err := d.io.WriteRegister(s.reg, s.val); err != nil {
			return err
		}
		if s.settle > 0 {
			d.sleep(s.settle)
		}
	}
	d.inited = true
	return nil
}

// Ready reports whether STATUS2.AVALID is set.
func (d *Device) Ready() (bool, error) {
	st, err := d.io.ReadRegister(regStatus2)
	if err != nil {
		return false, err
	}
	return st&status2AValid != 0, nil
}

// Collect reads all channels if a result is available, else ErrNotReady.
func (d *Device) Collect(out *Sample) error {
	if !d.cfg.SkipReadyCheck {
		ok, err := d.Ready()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotReady
		}
	}
	var s Sample
	for ch := 0; ch < NumChannels; ch++ {
		v, err := d.Channel(ch)
		if err != nil {
			return err
		}
		s.Channels[ch] = v
	}
	d.last = s
	if out != nil {
		*out = s
	}
	return nil
}

// Channel reads one channel as (high << 8) | low.
func (d *Device) Channel(ch int) (uint16, error) {
	reg := byte(regCh0Low + 2*ch)
	lo, err := d.io.ReadRegister(reg)
	if err != nil {
		return 0, err
	}
	hi, err := d.io.ReadRegister(reg + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Read initialises if needed, waits for AVALID (bounded) and reads all six
// channels. A bus failure clears the init state so the next Read re-runs it.
func (d *Device) Read() (Sample, error) {
	if !d.configured() {
		if err := d.Configure(); err != nil {
			return Sample{}, err
		}
	} else if !d.inited || d.cfg.ReinitEachRead {
		if err := d.Init(); err != nil {
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
			d.inited = false
			return Sample{}, err
		}
	}
}

// Last returns the most recent successful sample.
func (d *Device) Last() Sample { return d.last }
