package bridge

import (
	"errors"
	"io/fs"
	"os"

	"plantsense-go/errcode"

	"gopkg.in/yaml.v3"
)

// LoadConfig overlays the YAML file at path onto DefaultConfig. A missing
// file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errcode.Wrap(errcode.InvalidPayload, "bridge.LoadConfig", err)
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" || cfg.MQTT.Broker == "" {
		return cfg, &errcode.E{C: errcode.InvalidParams, Op: "bridge.LoadConfig", Msg: "mqtt.broker, kafka.brokers and kafka.topic are required"}
	}
	return cfg, nil
}
