// services/hal/owner.go
package hal

import (
	"io"
	"time"

	"plantsense-go/errcode"

	"tinygo.org/x/drivers"
)

// request posted to the per-bus worker
type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

// Owner hosts a single worker goroutine per bus and serialises every
// transaction through it. It satisfies drivers.I2C.
type Owner struct {
	id      string
	hw      drivers.I2C
	reqs    chan i2cReq
	quit    chan struct{}
	timeout time.Duration // 0 => no deadline
}

// Ensure compile-time conformance with drivers.I2C
var _ drivers.I2C = (*Owner)(nil)

// NewOwner starts the worker for hw. A timeout of zero waits forever.
func NewOwner(id string, hw drivers.I2C, timeout time.Duration) *Owner {
	o := &Owner{
		id:      id,
		hw:      hw,
		reqs:    make(chan i2cReq, 16),
		quit:    make(chan struct{}),
		timeout: timeout,
	}
	go o.loop()
	return o
}

func (o *Owner) ID() string { return o.id }

func (o *Owner) loop() {
	for {
		select {
		case req := <-o.reqs:
			err := o.hw.Tx(req.addr, req.w, req.r)
			// best-effort reply; do not block the worker
			select {
			case req.done <- err:
			default:
			}
		case <-o.quit:
			if c, ok := o.hw.(io.Closer); ok {
				_ = c.Close()
			}
			return
		}
	}
}

// Close stops the worker and releases the bus once any in-flight
// transaction has finished. Pending callers time out.
func (o *Owner) Close() { close(o.quit) }

// Tx posts a request and waits for completion, bounded by the owner timeout.
// With a timeout the worker uses private copies of w and r, and r is filled
// only when the transaction completes in time, so a late transaction cannot
// touch buffers the caller has already reused.
func (o *Owner) Tx(addr uint16, w, r []byte) error {
	if o.timeout <= 0 {
		req := i2cReq{addr: addr, w: w, r: r, done: make(chan error, 1)}
		o.reqs <- req
		return <-req.done
	}

	req := i2cReq{addr: addr, done: make(chan error, 1)}
	if len(w) > 0 {
		req.w = append([]byte(nil), w...)
	}
	if len(r) > 0 {
		req.r = make([]byte, len(r))
	}

	t := time.NewTimer(o.timeout)
	defer t.Stop()
	select {
	case o.reqs <- req:
	case <-t.C:
		return errcode.Busy
	}
	select {
	case err := <-req.done:
		if err == nil {
			copy(r, req.r)
		}
		return err
	case <-t.C:
		return errcode.Timeout
	}
}
