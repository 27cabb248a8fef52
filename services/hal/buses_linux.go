// services/hal/buses_linux.go
//go:build linux && !tinygo

package hal

import (
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// periphBus narrows a periph bus to the drivers.I2C shape.
type periphBus struct {
	b i2c.BusCloser
}

func (p periphBus) Tx(addr uint16, w, r []byte) error { return p.b.Tx(addr, w, r) }
func (p periphBus) Close() error                      { return p.b.Close() }

// openBus opens a Linux /dev/i2c-N bus through periph.io.
func openBus(p I2CPlan) (drivers.I2C, error) {
	if err := hostInit(); err != nil {
		return nil, err
	}
	name := p.Dev
	if name == "" {
		name = strings.TrimPrefix(p.ID, "i2c")
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	// Most /dev/i2c-N drivers fix the clock in the device tree and refuse
	// SetSpeed; that is not an error here.
	if err := b.SetSpeed(physic.Frequency(p.Hz) * physic.Hertz); err != nil {
		println("[hal] i2c", p.ID, "keeps kernel clock:", err.Error())
	}
	println("[hal] i2c ready:", p.ID, "dev", name)
	return periphBus{b: b}, nil
}
