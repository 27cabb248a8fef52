package heartbeat

import (
	"context"
	"time"

	"plantsense-go/bus"
	"plantsense-go/services/config"
	"plantsense-go/services/plants"
	"plantsense-go/types"
	"plantsense-go/x/conv"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicLinks           = bus.T("link", "+", "state")
	topicReadings        = bus.T("sensor", "+", "value")
	topicPlant           = bus.T("config", "plant")
)

// Status is the console summary assembled from retained bus state.
type Status struct {
	Links    map[string]types.LinkState
	CO2      types.CO2Value
	Spectrum types.SpectrumValue
	Plant    string
}

type Service struct {
	// Out receives each summary line; nil prints to the console.
	Out func(line string)

	st Status
}

func (s *Service) emit(line string) {
	if s.Out != nil {
		s.Out(line)
		return
	}
	println(line)
}

// apply folds one bus message into the status.
func (s *Service) apply(msg *bus.Message) {
	switch p := msg.Payload.(type) {
	case types.LinkStatus:
		if s.st.Links == nil {
			s.st.Links = map[string]types.LinkState{}
		}
		s.st.Links[p.Client] = p.State
	case types.CO2Value:
		s.st.CO2 = p
	case types.SpectrumValue:
		s.st.Spectrum = p
	case plants.Profile:
		s.st.Plant = p.Name
	}
}

// Line renders the status at t.
func (s *Service) Line(t time.Time) string {
	line := "[heartbeat] " + t.Format("15:04:05")
	for _, name := range []string{"co2", "spectro"} {
		st, ok := s.st.Links[name]
		if !ok {
			continue
		}
		line += " " + name + "=" + st.String()
	}
	if s.st.CO2.TS != 0 {
		line += " co2_ppm=" + conv.Itoa(int(s.st.CO2.CO2))
	}
	if s.st.Spectrum.TS != 0 {
		line += " ch0=" + conv.Itoa(int(s.st.Spectrum.Channels[0]))
	}
	if s.st.Plant != "" {
		line += " plant=" + s.st.Plant
	}
	return line
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, interval time.Duration) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	linkSub := conn.Subscribe(topicLinks)
	readSub := conn.Subscribe(topicReadings)
	plantSub := conn.Subscribe(topicPlant)
	defer conn.Disconnect()

	if interval <= 0 {
		interval = 30 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and bus changes
	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case t := <-tick.C:
			s.emit(s.Line(t))
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(config.HeartbeatConfig); ok && c.Interval > 0 {
				tick.Reset(c.Interval)
				println("[heartbeat] interval set to", c.Interval.String())
			}
		case msg := <-linkSub.Channel():
			s.apply(msg)
		case msg := <-readSub.Channel():
			s.apply(msg)
		case msg := <-plantSub.Channel():
			s.apply(msg)
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection, interval time.Duration) {
	go s.serviceLoop(ctx, conn, interval)
}
