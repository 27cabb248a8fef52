package main

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

type scriptedPort struct {
	chunks  []string
	written bytes.Buffer
	timeout time.Duration
}

func (s *scriptedPort) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}

func (s *scriptedPort) Write(p []byte) (int, error) { return s.written.Write(p) }

func (s *scriptedPort) SetReadTimeout(t time.Duration) error {
	s.timeout = t
	return nil
}

func TestDrive_AnswersPromptAndStopsAtLoop(t *testing.T) {
	p := &scriptedPort{chunks: []string{
		"[main] booting pico\nSelect Plant Con",
		"figuration:\n1. Lettuce\n2. Tomato\n3. Basil\n",
		"Tomato configuration selected.\n",
		"[main] entering main loop\n[monitor] checking links\n",
		"never read",
	}}
	var out bytes.Buffer
	if err := drive(p, '2', &out, time.Second); err != nil {
		t.Fatal(err)
	}
	if got := p.written.String(); got != "2\n" {
		t.Fatalf("wrote %q", got)
	}
	if !bytes.Contains(out.Bytes(), []byte("Tomato configuration selected.")) {
		t.Fatalf("echo missing: %q", out.String())
	}
	if len(p.chunks) != 1 {
		t.Fatalf("read past the loop banner")
	}
}

func TestDrive_TimesOutWithoutPrompt(t *testing.T) {
	p := &scriptedPort{}
	err := drive(p, '1', &bytes.Buffer{}, 20*time.Millisecond)
	if !errors.Is(err, errTimeout) {
		t.Fatalf("got %v", err)
	}
	if p.written.Len() != 0 {
		t.Fatalf("wrote %q", p.written.String())
	}
}

func TestChoiceFor(t *testing.T) {
	cases := map[string]byte{"1": '1', "3": '3', "tomato": '2', "Basil": '3'}
	for in, want := range cases {
		got, err := choiceFor(in)
		if err != nil || got != want {
			t.Errorf("%q: got %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"4", "cactus", ""} {
		if _, err := choiceFor(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}
