// services/hal/fakebus.go
package hal

import (
	"errors"
	"sync"
)

// ErrNack is returned by FakeBus for addresses with no attached device.
var ErrNack = errors.New("fakebus: nack")

// FakeTx records one transaction seen by a FakeBus.
type FakeTx struct {
	Addr uint16
	W    []byte
	R    int // bytes requested
}

// FakeDevice is a register-map peripheral. Reads pop queued responses first
// and fall back to the register map addressed by the first written byte.
type FakeDevice struct {
	Regs [256]byte

	// OnWrite, if set, runs after every write with the written bytes.
	OnWrite func(d *FakeDevice, w []byte)

	responses [][]byte
}

// Queue appends scripted responses for the next reads.
func (d *FakeDevice) Queue(p ...[]byte) {
	for _, b := range p {
		d.responses = append(d.responses, append([]byte(nil), b...))
	}
}

// Pending reports how many queued responses remain.
func (d *FakeDevice) Pending() int { return len(d.responses) }

// FakeBus is an in-memory drivers.I2C for tests and host runs.
type FakeBus struct {
	mu       sync.Mutex
	devs     map[uint16]*FakeDevice
	log      []FakeTx
	failN    int
	failErr  error
	failAddr int // -1 => any
}

func NewFakeBus() *FakeBus {
	return &FakeBus{devs: make(map[uint16]*FakeDevice), failAddr: -1}
}

// Attach adds (or returns) the device at addr.
func (b *FakeBus) Attach(addr uint16) *FakeDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devs[addr]; ok {
		return d
	}
	d := &FakeDevice{}
	b.devs[addr] = d
	return d
}

// Fail makes the next n transactions fail with err (ErrNack if nil).
func (b *FakeBus) Fail(n int, err error) {
	b.FailAddr(-1, n, err)
}

// FailAddr is Fail restricted to one address; addr < 0 matches any.
func (b *FakeBus) FailAddr(addr int, n int, err error) {
	if err == nil {
		err = ErrNack
	}
	b.mu.Lock()
	b.failN, b.failErr, b.failAddr = n, err, addr
	b.mu.Unlock()
}

// Txs returns a copy of the transaction log.
func (b *FakeBus) Txs() []FakeTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]FakeTx(nil), b.log...)
}

// ResetLog clears the transaction log.
func (b *FakeBus) ResetLog() {
	b.mu.Lock()
	b.log = b.log[:0]
	b.mu.Unlock()
}

func (b *FakeBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.log = append(b.log, FakeTx{Addr: addr, W: append([]byte(nil), w...), R: len(r)})

	if b.failN > 0 && (b.failAddr < 0 || uint16(b.failAddr) == addr) {
		b.failN--
		return b.failErr
	}
	d, ok := b.devs[addr]
	if !ok {
		return ErrNack
	}

	if len(w) > 0 {
		if len(w) > 1 {
			// register write with auto-increment
			reg := w[0]
			for _, v := range w[1:] {
				d.Regs[reg] = v
				reg++
			}
		}
		if d.OnWrite != nil {
			d.OnWrite(d, w)
		}
	}
	if len(r) == 0 {
		return nil
	}
	if len(d.responses) > 0 {
		resp := d.responses[0]
		d.responses = d.responses[1:]
		n := copy(r, resp)
		for i := n; i < len(r); i++ {
			r[i] = 0
		}
		return nil
	}
	var reg byte
	if len(w) > 0 {
		reg = w[0]
	}
	for i := range r {
		r[i] = d.Regs[reg]
		reg++
	}
	return nil
}
