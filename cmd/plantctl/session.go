package main

import (
	"errors"
	"io"
	"strings"
	"time"
)

const (
	promptMarker = "Select Plant Configuration"
	doneMarker   = "[monitor] checking links"
)

var errTimeout = errors.New("plantctl: timed out waiting for the console")

// port is the subset of serial.Port used here.
type port interface {
	io.ReadWriter
	SetReadTimeout(t time.Duration) error
}

// drive echoes console output, answers the first prompt with choice and
// returns once the main loop starts.
func drive(p port, choice byte, out io.Writer, timeout time.Duration) error {
	if err := p.SetReadTimeout(200 * time.Millisecond); err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	var (
		seen strings.Builder
		sent bool
		buf  [256]byte
	)
	for time.Now().Before(deadline) {
		n, err := p.Read(buf[:])
		if n > 0 {
			_, _ = out.Write(buf[:n])
			seen.Write(buf[:n])
		}
		if err != nil {
			return err
		}
		text := seen.String()
		if !sent && strings.Contains(text, promptMarker) {
			if _, err := p.Write([]byte{choice, '\n'}); err != nil {
				return err
			}
			sent = true
			seen.Reset()
			continue
		}
		if sent && strings.Contains(text, doneMarker) {
			return nil
		}
		// keep only a tail long enough to hold a marker split across reads
		if seen.Len() > 1024 {
			tail := text[len(text)-64:]
			seen.Reset()
			seen.WriteString(tail)
		}
	}
	return errTimeout
}
