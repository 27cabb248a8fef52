// Command telemetry-bridge subscribes to the Pico's MQTT telemetry, forwards
// every reading to Kafka and serves the latest values over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantsense-go/bus"
	"plantsense-go/services/bridge"

	"github.com/segmentio/kafka-go"
)

func main() {
	path := flag.String("config", "bridge.yaml", "YAML config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := bridge.LoadConfig(*path)
	if err != nil {
		log.Error("config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	defer writer.Close()

	b := bus.NewBus(8)
	svc := bridge.New(cfg, writer, log, b.NewConnection("bridge"))

	client, err := bridge.Subscribe(ctx, cfg.MQTT, svc)
	if err != nil {
		log.Error("mqtt connect", slog.String("broker", cfg.MQTT.Broker), slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Disconnect(250)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           svc.Handler(os.Stdout),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", slog.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	log.Info("bridge running", slog.String("filter", cfg.MQTT.Filter), slog.String("kafka_topic", cfg.Kafka.Topic))
	_ = svc.Run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
	log.Info("bridge stopped")
}
