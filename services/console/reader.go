package console

import (
	"context"
	"io"
)

// ReaderInput adapts a blocking io.Reader (stdin, a pipe) to Input. A single
// goroutine owns the reader; bytes not yet consumed stay buffered.
type ReaderInput struct {
	ch  chan []byte
	err chan error
	buf []byte
}

func NewReaderInput(r io.Reader) *ReaderInput {
	ri := &ReaderInput{ch: make(chan []byte, 4), err: make(chan error, 1)}
	go func() {
		for {
			p := make([]byte, 64)
			n, err := r.Read(p)
			if n > 0 {
				ri.ch <- p[:n]
			}
			if err != nil {
				ri.err <- err
				return
			}
		}
	}()
	return ri
}

func (ri *ReaderInput) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	if len(ri.buf) == 0 {
		select {
		case b := <-ri.ch:
			ri.buf = b
		case err := <-ri.err:
			// drain data that raced the error
			select {
			case b := <-ri.ch:
				ri.err <- err
				ri.buf = b
			default:
				ri.err <- err // sticky
				return 0, err
			}
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	n := copy(p, ri.buf)
	ri.buf = ri.buf[n:]
	return n, nil
}
