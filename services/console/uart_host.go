//go:build !(rp2040 || rp2350)

package console

import (
	"os"
)

// UARTConfig selects the console UART and pins. Host builds ignore it and
// use stdin/stdout.
type UARTConfig struct {
	ID   string `yaml:"id"`
	TX   int    `yaml:"tx"`
	RX   int    `yaml:"rx"`
	Baud uint32 `yaml:"baud"`
}

// Port is the process console on host builds.
type Port struct{ *ReaderInput }

func (p *Port) Write(b []byte) (int, error) { return os.Stdout.Write(b) }

func OpenUART(UARTConfig) (*Port, error) {
	return &Port{ReaderInput: NewReaderInput(os.Stdin)}, nil
}
