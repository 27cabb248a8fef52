// services/hal/buses_rp2.go
//go:build rp2040 || rp2350

package hal

import (
	"machine"

	"plantsense-go/errcode"

	"tinygo.org/x/drivers"
)

// openBus configures one RP2 I²C controller on the planned pins.
func openBus(p I2CPlan) (drivers.I2C, error) {
	var hw *machine.I2C
	switch p.ID {
	case "i2c0":
		hw = machine.I2C0
	case "i2c1":
		hw = machine.I2C1
	default:
		return nil, errcode.UnknownBus
	}
	sda := machine.Pin(p.SDA)
	scl := machine.Pin(p.SCL)
	sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	if err := hw.Configure(machine.I2CConfig{
		SCL:       scl,
		SDA:       sda,
		Frequency: p.Hz,
	}); err != nil {
		return nil, err
	}
	println("[hal] i2c ready:", p.ID, "sda", p.SDA, "scl", p.SCL, "hz", p.Hz)
	return hw, nil
}
