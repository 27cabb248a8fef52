//go:build rp2040 || rp2350

package main

import "plantsense-go/services/config"

func loadConfig() (config.Config, error) { return config.Embedded("pico") }
