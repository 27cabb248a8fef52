package config

import (
	_ "embed"

	"plantsense-go/errcode"
)

//go:embed defaults/pico.yaml
var picoYAML []byte

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

var embeddedConfigs = map[string][]byte{
	"pico": picoYAML,
}

// Embedded parses the configuration compiled in for device.
func Embedded(device string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Config{}, &errcode.E{C: errcode.Unsupported, Op: "config.Embedded", Msg: "no embedded config for device: " + device}
	}
	return Parse(raw)
}
