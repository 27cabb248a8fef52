// Package power maps the operator-selected power mode to the monitor's idle
// delay. No clock or sleep state of the MCU is changed.
package power

import (
	"strings"
	"time"

	"plantsense-go/errcode"
)

type Mode uint8

const (
	Unset  Mode = iota
	Low         // 600 s
	Normal      // 60 s
	High        // 1 s
)

func (m Mode) String() string {
	switch m {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	}
	return "unset"
}

// Interval returns the polling interval for m, or 0 for Unset.
func (m Mode) Interval() time.Duration {
	switch m {
	case Low:
		return 600 * time.Second
	case Normal:
		return 60 * time.Second
	case High:
		return 1 * time.Second
	}
	return 0
}

// ParseMode accepts a menu digit ("1".."3") or a name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return Unset, nil
	case "1", "low":
		return Low, nil
	case "2", "normal":
		return Normal, nil
	case "3", "high":
		return High, nil
	}
	return Unset, &errcode.E{C: errcode.InvalidParams, Op: "power.ParseMode", Msg: s}
}
