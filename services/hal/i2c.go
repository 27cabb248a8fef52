// services/hal/i2c.go
package hal

import (
	"plantsense-go/errcode"
	"plantsense-go/x/conv"

	"tinygo.org/x/drivers"
)

// MaxAddr is the largest 7-bit I²C address.
const MaxAddr = 0x7F

// Device is a register I/O adapter bound to one addressed peripheral.
//
// NOTE: bus.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus. Write and Read issue
// independent transactions (each with its own STOP).
type Device struct {
	bus  drivers.I2C
	addr uint16
	name string
}

// NewDevice validates the address and binds it to bus.
func NewDevice(bus drivers.I2C, addr uint16) (Device, error) {
	if bus == nil {
		return Device{}, &errcode.E{C: errcode.UnknownBus, Op: "hal.NewDevice"}
	}
	if addr > MaxAddr {
		return Device{}, &errcode.E{C: errcode.InvalidAddress, Op: "hal.NewDevice", Msg: conv.Itoa(int(addr)) + " is not a 7-bit address"}
	}
	return Device{bus: bus, addr: addr, name: "i2c@0x" + hex2(byte(addr))}, nil
}

func (d Device) Addr() uint16 { return d.addr }

// Write sends p and releases the bus.
func (d Device) Write(p []byte) error {
	return d.tx(".write", p, nil)
}

// ReadInto fills p from the device.
func (d Device) ReadInto(p []byte) error {
	return d.tx(".read", nil, p)
}

// Read returns n freshly read bytes.
func (d Device) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.ReadInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteReadInto writes w then reads len(r) bytes in one transaction.
func (d Device) WriteReadInto(w, r []byte) error {
	return d.tx(".write_read", w, r)
}

// WriteRead writes w then returns n bytes read in the same transaction.
func (d Device) WriteRead(w []byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.WriteReadInto(w, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteRegister writes a single 8-bit register.
func (d Device) WriteRegister(reg, val byte) error {
	return d.Write([]byte{reg, val})
}

// ReadRegister reads a single 8-bit register.
func (d Device) ReadRegister(reg byte) (byte, error) {
	var b [1]byte
	if err := d.WriteReadInto([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d Device) tx(op string, w, r []byte) error {
	if d.bus == nil {
		return &errcode.E{C: errcode.UnknownBus, Op: d.name + op}
	}
	return errcode.Wrap(errcode.BusError, d.name+op, d.bus.Tx(d.addr, w, r))
}

func hex2(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}
