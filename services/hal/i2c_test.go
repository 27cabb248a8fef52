package hal

import (
	"errors"
	"testing"
	"time"

	"plantsense-go/errcode"

	"tinygo.org/x/drivers"
)

func TestNewDevice_RejectsBadAddress(t *testing.T) {
	bus := NewFakeBus()
	if _, err := NewDevice(bus, 0x80); !errors.Is(err, errcode.InvalidAddress) {
		t.Fatalf("want invalid_address, got %v", err)
	}
	if _, err := NewDevice(nil, 0x39); !errors.Is(err, errcode.UnknownBus) {
		t.Fatalf("want unknown_bus, got %v", err)
	}
	d, err := NewDevice(bus, 0x62)
	if err != nil {
		t.Fatal(err)
	}
	if d.Addr() != 0x62 {
		t.Fatalf("addr=%#x", d.Addr())
	}
}

func TestDevice_RegisterRoundTrip(t *testing.T) {
	bus := NewFakeBus()
	bus.Attach(0x39)
	d, _ := NewDevice(bus, 0x39)

	if err := d.WriteRegister(0x80, 0x03); err != nil {
		t.Fatal(err)
	}
	v, err := d.ReadRegister(0x80)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x03 {
		t.Fatalf("reg=0x%02x", v)
	}

	txs := bus.Txs()
	if len(txs) != 2 {
		t.Fatalf("txs=%d", len(txs))
	}
	if txs[0].R != 0 || len(txs[0].W) != 2 {
		t.Fatalf("write tx=%+v", txs[0])
	}
	if txs[1].R != 1 || len(txs[1].W) != 1 || txs[1].W[0] != 0x80 {
		t.Fatalf("read tx=%+v", txs[1])
	}
}

func TestDevice_ReadUsesQueuedResponse(t *testing.T) {
	bus := NewFakeBus()
	dev := bus.Attach(0x62)
	dev.Queue([]byte{1, 2, 3})
	d, _ := NewDevice(bus, 0x62)

	if err := d.Write([]byte{0xEC, 0x05}); err != nil {
		t.Fatal(err)
	}
	got, err := d.Read(3)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
	if dev.Pending() != 0 {
		t.Fatal("response not consumed")
	}
}

func TestDevice_BusErrorWrapped(t *testing.T) {
	bus := NewFakeBus()
	bus.Attach(0x62)
	d, _ := NewDevice(bus, 0x62)
	bus.Fail(1, nil)

	_, err := d.WriteRead([]byte{0xE4, 0xB8}, 3)
	if !errors.Is(err, errcode.BusError) {
		t.Fatalf("want bus_error, got %v", err)
	}
	if !errors.Is(err, ErrNack) {
		t.Fatalf("cause lost: %v", err)
	}
	if got := err.Error(); got != "i2c@0x62.write_read: bus_error: fakebus: nack" {
		t.Fatalf("error text %q", got)
	}

	// fault is consumed
	if _, err := d.WriteRead([]byte{0xE4, 0xB8}, 3); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestDevice_AbsentDeviceNacks(t *testing.T) {
	bus := NewFakeBus()
	d, _ := NewDevice(bus, 0x10)
	if err := d.Write([]byte{0}); !errors.Is(err, ErrNack) {
		t.Fatalf("want nack, got %v", err)
	}
}

// blockingBus never completes until released.
type blockingBus struct{ release chan struct{} }

func (b *blockingBus) Tx(uint16, []byte, []byte) error {
	<-b.release
	return nil
}

func TestOwner_SerialisesAndTimesOut(t *testing.T) {
	bb := &blockingBus{release: make(chan struct{})}
	o := NewOwner("i2c0", bb, 20*time.Millisecond)
	defer o.Close()

	start := time.Now()
	err := o.Tx(0x39, []byte{0x80}, make([]byte, 1))
	if !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("timeout not honoured")
	}
	close(bb.release)
}

func TestOwner_PassesThrough(t *testing.T) {
	bus := NewFakeBus()
	bus.Attach(0x39).Regs[0x95] = 0x10
	o := NewOwner("i2c0", bus, 100*time.Millisecond)
	defer o.Close()

	var _ drivers.I2C = o
	d, err := NewDevice(o, 0x39)
	if err != nil {
		t.Fatal(err)
	}
	v, err := d.ReadRegister(0x95)
	if err != nil || v != 0x10 {
		t.Fatalf("v=%d err=%v", v, err)
	}
}

func TestBuses_ByIDAndDevice(t *testing.T) {
	b0, b1 := NewFakeBus(), NewFakeBus()
	bs := NewBuses(50*time.Millisecond, map[string]drivers.I2C{"i2c0": b0, "i2c1": b1})
	defer bs.Close()

	if _, ok := bs.ByID("i2c9"); ok {
		t.Fatal("unexpected bus")
	}
	if _, err := bs.Device("i2c9", 0x62); !errors.Is(err, errcode.UnknownBus) {
		t.Fatalf("want unknown_bus, got %v", err)
	}
	if _, err := bs.Device("i2c1", 0x62); err != nil {
		t.Fatal(err)
	}
}

func TestOpenWith_PropagatesOpenError(t *testing.T) {
	_, err := openWith(DefaultPlan(), func(p I2CPlan) (drivers.I2C, error) {
		if p.Hz != 100_000 {
			t.Errorf("hz=%d", p.Hz)
		}
		return nil, errcode.Unsupported
	})
	if !errors.Is(err, errcode.UnknownBus) || !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("got %v", err)
	}
}

// lateBus completes a transaction only after release, then fills r.
type lateBus struct {
	release chan struct{}
	done    chan struct{}
}

func (b *lateBus) Tx(_ uint16, _ []byte, r []byte) error {
	<-b.release
	for i := range r {
		r[i] = 0xEE
	}
	close(b.done)
	return nil
}

func TestOwner_LateCompletionLeavesCallerBufferAlone(t *testing.T) {
	lb := &lateBus{release: make(chan struct{}), done: make(chan struct{})}
	o := NewOwner("i2c1", lb, 10*time.Millisecond)
	defer o.Close()

	buf := []byte{1, 2, 3}
	if err := o.Tx(0x62, []byte{0xEC, 0x05}, buf); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
	close(lb.release)
	<-lb.done
	time.Sleep(5 * time.Millisecond)
	if buf[0] != 1 || buf[1] != 2 || buf[2] != 3 {
		t.Fatalf("caller buffer written after timeout: %v", buf)
	}
}

func TestOwner_CopiesReadOnSuccess(t *testing.T) {
	bus := NewFakeBus()
	bus.Attach(0x62).Queue([]byte{0xAA, 0xBB})
	o := NewOwner("i2c1", bus, 100*time.Millisecond)
	defer o.Close()

	buf := make([]byte, 2)
	if err := o.Tx(0x62, nil, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0xAA || buf[1] != 0xBB {
		t.Fatalf("buf=%x", buf)
	}
}

// closerBus records Close calls.
type closerBus struct {
	*FakeBus
	closed chan struct{}
}

func (c *closerBus) Close() error {
	close(c.closed)
	return nil
}

func TestOpenWith_ClosesOpenedBusesOnFailure(t *testing.T) {
	first := &closerBus{FakeBus: NewFakeBus(), closed: make(chan struct{})}
	_, err := openWith(DefaultPlan(), func(p I2CPlan) (drivers.I2C, error) {
		if p.ID == "i2c0" {
			return first, nil
		}
		return nil, errcode.Unsupported
	})
	if !errors.Is(err, errcode.UnknownBus) {
		t.Fatalf("got %v", err)
	}
	select {
	case <-first.closed:
	default:
		t.Fatal("opened bus leaked")
	}
}

func TestBuses_CloseReleasesHardware(t *testing.T) {
	cb := &closerBus{FakeBus: NewFakeBus(), closed: make(chan struct{})}
	bs := NewBuses(50*time.Millisecond, map[string]drivers.I2C{"i2c0": cb})
	bs.Close()
	select {
	case <-cb.closed:
	case <-time.After(time.Second):
		t.Fatal("bus not closed")
	}
}
