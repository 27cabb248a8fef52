// Command plantctl answers the Pico's plant selection prompt over USB serial.
//
//	plantctl -list
//	plantctl -port /dev/ttyACM0 -plant tomato
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"plantsense-go/services/plants"

	"go.bug.st/serial"
)

func main() {
	list := flag.Bool("list", false, "list serial ports and exit")
	port := flag.String("port", "", "serial port of the Pico")
	baud := flag.Int("baud", 115200, "baud rate")
	plant := flag.String("plant", "Lettuce", "plant name or menu number")
	wait := flag.Duration("timeout", 60*time.Second, "give up after this long")
	flag.Parse()

	if *list {
		ports, err := serial.GetPortsList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "list ports:", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	choice, err := choiceFor(*plant)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *port == "" {
		fmt.Fprintln(os.Stderr, "-port is required (see -list)")
		os.Exit(2)
	}

	p, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *port, err)
		os.Exit(1)
	}
	defer p.Close()

	if err := drive(p, choice, os.Stdout, *wait); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// choiceFor maps a plant name or menu digit to the key the console expects.
func choiceFor(s string) (byte, error) {
	if len(s) == 1 {
		if _, ok := plants.ByChoice(s[0]); ok {
			return s[0], nil
		}
	}
	for i, p := range plants.All() {
		if strings.EqualFold(p.Name, s) {
			return byte('1' + i), nil
		}
	}
	return 0, fmt.Errorf("unknown plant %q", s)
}
