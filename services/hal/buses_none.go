// services/hal/buses_none.go
//go:build !(rp2040 || rp2350) && !(linux && !tinygo)

package hal

import (
	"plantsense-go/errcode"

	"tinygo.org/x/drivers"
)

// openBus has no hardware on this platform; use NewBuses with fakes.
func openBus(p I2CPlan) (drivers.I2C, error) {
	return nil, errcode.Unsupported
}
