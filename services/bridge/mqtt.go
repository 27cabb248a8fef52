package bridge

import (
	"context"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe connects to the broker and feeds every message on the filter
// into s.Handle. Paho's auto-reconnect restores the subscription.
func Subscribe(ctx context.Context, cfg MQTTConfig, s *Service) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		tok := c.Subscribe(cfg.Filter, 0, func(_ mqtt.Client, m mqtt.Message) {
			s.Handle(m.Topic(), m.Payload())
		})
		tok.Wait()
		if err := tok.Error(); err != nil {
			s.log.Error("mqtt subscribe failed", slog.String("filter", cfg.Filter), slog.Any("error", err))
			return
		}
		s.log.Info("mqtt subscribed", slog.String("filter", cfg.Filter))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn("mqtt connection lost", slog.Any("error", err))
	})

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return c, nil
}
