package telemetry

import (
	"context"
	"sync"

	"plantsense-go/bus"
	"plantsense-go/errcode"
	"plantsense-go/types"
	"plantsense-go/x/timex"
)

// Supervisor owns the connection state of one client.
//
//	Disconnected --Signal(true)--> Connected
//	any          --Signal(false)/Lost--> Disconnected
//
// Check issues a connect request iff Disconnected. There is no backoff; the
// caller's loop cadence bounds the retry rate.
type Supervisor struct {
	name string
	sess Session
	conn *bus.Connection // optional; state is mirrored retained on the bus

	mu       sync.Mutex
	state    types.LinkState
	attempts int
	lastErr  error
}

func NewSupervisor(name string, sess Session, conn *bus.Connection) *Supervisor {
	s := &Supervisor{name: name, sess: sess, conn: conn}
	s.publish(types.LinkDisconnected, nil)
	return s
}

func (s *Supervisor) Name() string     { return s.name }
func (s *Supervisor) Session() Session { return s.sess }

func (s *Supervisor) State() types.LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Connected() bool { return s.State() == types.LinkConnected }

// Attempts returns the number of connect requests issued so far.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// LastError returns the most recent connect or publish failure.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Signal applies an asynchronous connect result.
func (s *Supervisor) Signal(accepted bool) {
	next := types.LinkDisconnected
	if accepted {
		next = types.LinkConnected
	}
	s.set(next, nil)
}

// Lost marks the client disconnected after a publish error. The session is
// closed too, so the next Check starts from a fresh connection.
func (s *Supervisor) Lost(err error) {
	s.sess.Disconnect()
	s.set(types.LinkDisconnected, err)
}

// Check issues a connect request if the client is disconnected and reports
// whether one was issued.
func (s *Supervisor) Check(ctx context.Context) bool {
	if s.State() != types.LinkDisconnected {
		return false
	}
	s.connect(ctx)
	return true
}

// Reset disconnects a connected client and issues a fresh connect request.
func (s *Supervisor) Reset(ctx context.Context) {
	if s.State() == types.LinkConnected {
		s.sess.Disconnect()
		s.set(types.LinkDisconnected, nil)
	}
	s.connect(ctx)
}

func (s *Supervisor) connect(ctx context.Context) {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()

	println("[link]", s.name, "connecting")
	if err := s.sess.Connect(ctx); err != nil {
		e := &errcode.E{C: errcode.ConnectFailed, Op: "link." + s.name, Err: err}
		println("[link]", s.name, "connect failed:", e.Error())
		s.set(types.LinkDisconnected, e)
	}
}

func (s *Supervisor) set(next types.LinkState, err error) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	if err != nil {
		s.lastErr = err
	}
	s.mu.Unlock()

	if prev != next {
		println("[link]", s.name, prev.String(), "->", next.String())
	}
	if prev != next || err != nil {
		s.publish(next, err)
	}
}

func (s *Supervisor) publish(st types.LinkState, err error) {
	if s.conn == nil {
		return
	}
	ls := types.LinkStatus{Client: s.name, State: st, TS: timex.NowMs()}
	if err != nil {
		ls.Error = string(errcode.Of(err))
	}
	s.conn.Publish(s.conn.NewMessage(bus.T("link", s.name, "state"), ls, true))
}
