// Package console runs the plant-profile selection menu over a byte stream.
package console

import (
	"context"
	"errors"
	"io"
	"time"

	"plantsense-go/bus"
	"plantsense-go/errcode"
	"plantsense-go/services/plants"
	"plantsense-go/x/conv"
)

// Input is a context-aware byte source, the uartx receive shape.
type Input interface {
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

const menu = "Select Plant Configuration:\n1. Lettuce\n2. Tomato\n3. Basil\n"

// Config controls prompt timing. Zero values select the defaults.
type Config struct {
	Timeout    time.Duration // per prompt; default 8 s
	Pause      time.Duration // between prompts; default 2 s
	MaxPrompts int           // 0 => prompt until a valid choice
}

type Console struct {
	cfg  Config
	in   Input
	out  io.Writer
	conn *bus.Connection // optional; selection is published retained

	pending []byte
	sleep   func(ctx context.Context, d time.Duration) bool
}

func New(cfg Config, in Input, out io.Writer, conn *bus.Connection) *Console {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Pause <= 0 {
		cfg.Pause = 2 * time.Second
	}
	return &Console{cfg: cfg, in: in, out: out, conn: conn, sleep: sleepCtx}
}

// Select prompts with default timing until a profile is chosen.
func Select(ctx context.Context, in Input, out io.Writer) (plants.Profile, error) {
	return New(Config{}, in, out, nil).Select(ctx)
}

// Select prompts until a valid key arrives, ctx ends, or MaxPrompts is
// reached. Whitespace is ignored.
func (c *Console) Select(ctx context.Context) (plants.Profile, error) {
	for prompt := 1; ; prompt++ {
		c.print(menu)
		key, err := c.next(ctx)
		switch {
		case err == nil:
			if p, ok := plants.ByChoice(key); ok {
				c.print(p.Name + " configuration selected.\n")
				c.print(plants.Describe(p))
				c.publish(p)
				return p, nil
			}
			c.print("Invalid selection. Please choose 1, 2, or 3.\n")
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			c.print("No input received. Please enter a selection.\n")
		default:
			return plants.Profile{}, err
		}
		if c.cfg.MaxPrompts > 0 && prompt >= c.cfg.MaxPrompts {
			return plants.Profile{}, &errcode.E{C: errcode.Timeout, Op: "console.Select", Msg: "no selection after "+conv.Itoa(prompt)+" prompts"}
		}
		if !c.sleep(ctx, c.cfg.Pause) {
			return plants.Profile{}, ctx.Err()
		}
	}
}

// next returns the first non-whitespace byte received within the timeout.
// Unconsumed bytes stay queued for the next prompt.
func (c *Console) next(ctx context.Context) (byte, error) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var buf [16]byte
	for {
		for len(c.pending) > 0 {
			b := c.pending[0]
			c.pending = c.pending[1:]
			if !isSpace(b) {
				return b, nil
			}
		}
		n, err := c.in.RecvSomeContext(rctx, buf[:])
		if n > 0 {
			c.pending = append(c.pending, buf[:n]...)
			continue
		}
		if err != nil {
			if rctx.Err() != nil {
				return 0, rctx.Err()
			}
			return 0, err
		}
	}
}

func (c *Console) publish(p plants.Profile) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(bus.T("config", "plant"), p, true))
}

func (c *Console) print(s string) {
	if c.out != nil {
		_, _ = io.WriteString(c.out, s)
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
