//go:build tinygo && (ninafw || challenger_rp2040 || wioterminal || comboat_fw || arduino_mkrwifi1010)

package wifi

import (
	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
)

type netLink struct{ nl netlink.Netlinker }

func (l netLink) Connect(ssid, passphrase string) error {
	return l.nl.NetConnect(&netlink.ConnectParams{Ssid: ssid, Passphrase: passphrase})
}

// Radio returns the board's radio and registers it as the network device
// used by net.Dial.
func Radio() Link {
	nl, dev := probe.Probe()
	if nl == nil {
		return nil
	}
	if dev != nil {
		netdev.UseNetdev(dev)
	}
	return netLink{nl: nl}
}
