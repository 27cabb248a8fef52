// services/hal/plan.go
package hal

import (
	"io"
	"time"

	"plantsense-go/errcode"

	"tinygo.org/x/drivers"
)

// Plan specifies wiring and operating parameters for the I²C controllers.
// Providers consume this plan to instantiate bus owners.
type Plan struct {
	I2C       []I2CPlan     `yaml:"buses"`
	TxTimeout time.Duration `yaml:"tx_timeout"`
}

type I2CPlan struct {
	ID  string `yaml:"id"`  // e.g. "i2c0"
	SDA int    `yaml:"sda"` // GPIO number (MCU)
	SCL int    `yaml:"scl"` // GPIO number (MCU)
	Hz  uint32 `yaml:"hz"`  // bus frequency
	Dev string `yaml:"dev"` // Linux bus name for periph, e.g. "1"; defaults to the ID suffix
}

// DefaultPlan wires the spectrometer to i2c0 (GP0/GP1) and the CO2 sensor to
// i2c1 (GP2/GP3), both at 100 kHz.
func DefaultPlan() Plan {
	return Plan{
		I2C: []I2CPlan{
			{ID: "i2c0", SDA: 0, SCL: 1, Hz: 100_000},
			{ID: "i2c1", SDA: 2, SCL: 3, Hz: 100_000},
		},
		TxTimeout: 250 * time.Millisecond,
	}
}

// Buses holds the opened bus owners by id.
type Buses struct {
	owners map[string]*Owner
}

// ByID returns the serialised bus for id.
func (b *Buses) ByID(id string) (drivers.I2C, bool) {
	o, ok := b.owners[id]
	if !ok {
		return nil, false
	}
	return o, true
}

// Device resolves a bus by id and binds addr on it.
func (b *Buses) Device(busID string, addr uint16) (Device, error) {
	bus, ok := b.ByID(busID)
	if !ok {
		return Device{}, &errcode.E{C: errcode.UnknownBus, Op: "hal.Device", Msg: busID}
	}
	return NewDevice(bus, addr)
}

// Close stops every bus owner.
func (b *Buses) Close() {
	for _, o := range b.owners {
		o.Close()
	}
}

// OpenBuses configures every planned controller on the current platform.
func OpenBuses(plan Plan) (*Buses, error) {
	return openWith(plan, openBus)
}

// NewBuses wraps already-configured buses (fakes, shared controllers).
func NewBuses(timeout time.Duration, raw map[string]drivers.I2C) *Buses {
	b := &Buses{owners: make(map[string]*Owner, len(raw))}
	for id, hw := range raw {
		b.owners[id] = NewOwner(id, hw, timeout)
	}
	return b
}

func openWith(plan Plan, open func(I2CPlan) (drivers.I2C, error)) (*Buses, error) {
	raw := make(map[string]drivers.I2C, len(plan.I2C))
	for _, p := range plan.I2C {
		if p.Hz == 0 {
			p.Hz = 100_000
		}
		hw, err := open(p)
		if err != nil {
			for _, opened := range raw {
				if c, ok := opened.(io.Closer); ok {
					_ = c.Close()
				}
			}
			return nil, &errcode.E{C: errcode.UnknownBus, Op: "hal.OpenBuses", Msg: p.ID, Err: err}
		}
		raw[p.ID] = hw
	}
	return NewBuses(plan.TxTimeout, raw), nil
}
