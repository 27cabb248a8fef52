//go:build !(rp2040 || rp2350)

package main

import (
	"flag"

	"plantsense-go/services/config"
)

func loadConfig() (config.Config, error) {
	path := flag.String("config", "", "YAML config file (default: embedded pico config)")
	flag.Parse()
	if *path == "" {
		return config.Embedded("pico")
	}
	return config.Load(*path)
}
