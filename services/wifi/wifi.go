// Package wifi joins the configured access point before any MQTT traffic.
package wifi

import (
	"context"
	"time"

	"plantsense-go/errcode"
)

// Link is the radio surface used by Join. On the Pico W it is backed by a
// netlink.Netlinker.
type Link interface {
	Connect(ssid, passphrase string) error
}

type Config struct {
	SSID       string
	Passphrase string
	Attempts   int           // 0 => retry until ctx ends
	Retry      time.Duration // default 5 s
}

// Join connects the link, retrying at a fixed interval. An empty SSID is a
// no-op so host builds can share the boot path; a configured SSID without a
// radio is reported as unsupported.
func Join(ctx context.Context, l Link, c Config) error {
	if c.SSID == "" {
		return nil
	}
	if l == nil {
		return &errcode.E{C: errcode.Unsupported, Op: "wifi.Join", Msg: "no radio on this target"}
	}
	if c.Retry <= 0 {
		c.Retry = 5 * time.Second
	}
	var last error
	for n := 1; c.Attempts == 0 || n <= c.Attempts; n++ {
		last = l.Connect(c.SSID, c.Passphrase)
		if last == nil {
			println("[wifi] joined", c.SSID)
			return nil
		}
		println("[wifi] join attempt failed:", last.Error())
		t := time.NewTimer(c.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return errcode.Wrap(errcode.ConnectFailed, "wifi.Join", last)
}
