//go:build rp2040 || rp2350

package console

import (
	"context"
	"machine"

	"plantsense-go/errcode"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTConfig selects the console UART and pins.
type UARTConfig struct {
	ID   string `yaml:"id"` // "uart0" | "uart1"
	TX   int    `yaml:"tx"`
	RX   int    `yaml:"rx"`
	Baud uint32 `yaml:"baud"`
}

// Port is a configured console UART.
type Port struct{ u *uartx.UART }

func (p *Port) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p *Port) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	return p.u.RecvSomeContext(ctx, buf)
}

// OpenUART configures the console UART. Defaults inside uartx apply to zero
// fields.
func OpenUART(c UARTConfig) (*Port, error) {
	var hw *uartx.UART
	switch c.ID {
	case "uart0":
		hw = uartx.UART0
	case "uart1", "":
		hw = uartx.UART1
	default:
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "console.OpenUART", Msg: c.ID}
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: c.Baud,
		TX:       machine.Pin(c.TX),
		RX:       machine.Pin(c.RX),
	}); err != nil {
		return nil, err
	}
	println("[console] uart ready:", c.ID, "tx", c.TX, "rx", c.RX, "baud", c.Baud)
	return &Port{u: hw}, nil
}
