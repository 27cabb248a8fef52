package telemetry

import (
	"context"

	"plantsense-go/errcode"
)

// Session is one network client session towards the broker.
type Session interface {
	// Connect issues a connect request. Acceptance is reported separately
	// through the session's callback into Supervisor.Signal.
	Connect(ctx context.Context) error
	Disconnect()
	Publish(topic string, qos byte, retain bool, payload []byte) error
}

// Publisher hands payloads to a session fire-and-forget. The zero value
// publishes at QoS 0 without retain.
type Publisher struct {
	QoS    byte
	Retain bool
}

// Publish sends payload on topic. Failures are logged and returned as
// publish_failed; nothing is buffered or retried.
func (p Publisher) Publish(sess Session, topic string, payload []byte) error {
	if sess == nil {
		return &errcode.E{C: errcode.PublishFailed, Op: "telemetry.publish", Msg: topic + ": no session"}
	}
	if err := sess.Publish(topic, p.QoS, p.Retain, payload); err != nil {
		e := &errcode.E{C: errcode.PublishFailed, Op: "telemetry.publish", Msg: topic, Err: err}
		println("[telemetry] publish failed:", e.Error())
		return e
	}
	return nil
}
