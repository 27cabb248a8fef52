package main

import (
	"context"
	"time"

	"plantsense-go/bus"
	"plantsense-go/drivers/as7341"
	"plantsense-go/drivers/scd4x"
	"plantsense-go/errcode"
	"plantsense-go/services/config"
	"plantsense-go/services/console"
	"plantsense-go/services/hal"
	"plantsense-go/services/heartbeat"
	"plantsense-go/services/monitor"
	"plantsense-go/services/mqttlink"
	"plantsense-go/services/plants"
	"plantsense-go/services/power"
	"plantsense-go/services/sensors"
	"plantsense-go/services/telemetry"
	"plantsense-go/services/wifi"
)

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		println("[main] config error, using defaults:", err.Error())
		cfg = config.Default()
	}

	// Allow USB CDC to enumerate before we print.
	time.Sleep(cfg.Device.BootDelay)
	println("[main] booting", cfg.Device.ID)

	b := bus.NewBus(4)
	cfgConn := b.NewConnection("config")
	config.NewService(cfg).Start(ctx, cfgConn)

	profile := selectPlant(ctx, cfg, b.NewConnection("console"))
	println("[main] plant:", profile.Name)

	println("[main] joining Wi-Fi …")
	if err := wifi.Join(ctx, wifi.Radio(), wifi.Config{SSID: cfg.WiFi.SSID, Passphrase: cfg.WiFi.Passphrase}); err != nil {
		println("[main] wifi:", err.Error())
	}
	time.Sleep(cfg.Device.NetSettle)

	buses, err := hal.OpenBuses(cfg.I2C)
	if err != nil {
		println("[main] i2c:", err.Error())
		halt()
	}
	defer buses.Close()

	co2, err := openCO2(buses, cfg.CO2)
	if err != nil {
		println("[main] scd4x:", err.Error())
	}
	spec, err := openSpectrometer(buses, cfg.Spectrometer)
	if err != nil {
		println("[main] as7341:", err.Error())
	}

	linkConn := b.NewConnection("links")
	boot := mqttlink.NewBootID()
	co2Link := newLink("co2", cfg.MQTT, boot, linkConn)
	specLink := newLink("spectro", cfg.MQTT, boot, linkConn)

	hb := &heartbeat.Service{}
	hb.Start(ctx, b.NewConnection("heartbeat"), cfg.Heartbeat.Interval)

	mon := monitor.New(monitor.Config{
		TopicCO2:      cfg.MQTT.TopicCO2,
		TopicSpectrum: cfg.MQTT.TopicSpectrum,
		PhaseGap:      cfg.Loop.PhaseGap,
		IdleDelay:     cfg.Loop.IdleDelay,
		SkipResets:    cfg.Loop.SkipResets,
	}, monitor.Deps{
		CO2:          co2,
		Spectrum:     spec,
		CO2Link:      co2Link,
		SpectrumLink: specLink,
		Conn:         b.NewConnection("monitor"),
	})
	if mode, err := power.ParseMode(cfg.Loop.PowerMode); err == nil {
		mon.SetMode(mode)
	} else {
		println("[main] power mode:", err.Error())
	}

	println("[main] entering main loop")
	_ = mon.Run(ctx)
}

func selectPlant(ctx context.Context, cfg config.Config, conn *bus.Connection) plants.Profile {
	fallback, ok := plants.ByName(cfg.Console.DefaultPlant)
	if !ok {
		fallback = plants.All()[0]
	}
	if !cfg.Console.Enabled {
		conn.Publish(conn.NewMessage(bus.T("config", "plant"), fallback, true))
		return fallback
	}
	port, err := console.OpenUART(cfg.Console.UART)
	if err != nil {
		println("[main] console:", err.Error())
		return fallback
	}
	c := console.New(console.Config{
		Timeout:    cfg.Console.Timeout,
		Pause:      cfg.Console.Pause,
		MaxPrompts: cfg.Console.MaxPrompts,
	}, port, port, conn)
	p, err := c.Select(ctx)
	if err != nil {
		println("[main] no plant selected:", err.Error())
		return fallback
	}
	return p
}

func openCO2(buses *hal.Buses, c config.CO2Config) (*sensors.CO2Reader, error) {
	i2c, ok := buses.ByID(c.Bus)
	if !ok {
		return sensors.NewCO2Reader(nil, c.Bus), unknownBus(c.Bus)
	}
	d := scd4x.New(i2c)
	layout := scd4x.LayoutDatasheet
	if c.Layout == "legacy" {
		layout = scd4x.LayoutLegacy
	}
	err := d.Configure(scd4x.Config{
		Address:      c.Address,
		Layout:       layout,
		PollInterval: c.PollInterval,
		ReadyTimeout: c.ReadyTimeout,
	})
	return sensors.NewCO2Reader(d, c.Bus), err
}

func openSpectrometer(buses *hal.Buses, c config.SpectrometerConfig) (*sensors.SpectrumReader, error) {
	i2c, ok := buses.ByID(c.Bus)
	if !ok {
		return sensors.NewSpectrumReader(nil, c.Bus), unknownBus(c.Bus)
	}
	d := as7341.New(i2c)
	err := d.Configure(as7341.Config{
		Address:        c.Address,
		Gain:           c.Gain,
		ATime:          c.ATime,
		ReinitEachRead: c.ReinitEachRead,
		SkipReadyCheck: c.SkipReadyCheck,
	})
	return sensors.NewSpectrumReader(d, c.Bus), err
}

func newLink(suffix string, c config.MQTTConfig, boot string, conn *bus.Connection) *telemetry.Supervisor {
	sess := mqttlink.New(mqttlink.Config{
		Broker:         c.Broker,
		ClientID:       mqttlink.ClientID(c.ClientID, suffix, c.UniqueIDs),
		Username:       c.Username,
		Password:       c.Password,
		KeepAlive:      c.KeepAlive,
		ConnectTimeout: c.ConnectTimeout,
		StatusTopic:    c.StatusTopic,
		BootID:         boot,
	})
	sup := telemetry.NewSupervisor(suffix, sess, conn)
	sess.Notify(sup.Signal)
	return sup
}

func unknownBus(id string) error {
	return &errcode.E{C: errcode.UnknownBus, Op: "main", Msg: id}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
