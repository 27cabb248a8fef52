//go:build !(tinygo && (ninafw || challenger_rp2040 || wioterminal || comboat_fw || arduino_mkrwifi1010))

package wifi

// Radio returns nil: on hosts the OS owns the network, and other TinyGo
// targets have no netlink radio driver.
func Radio() Link { return nil }
