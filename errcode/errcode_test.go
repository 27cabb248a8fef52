package errcode

import (
	"errors"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"bus_error":       BusError,
		"crc_mismatch":    CRCMismatch,
		"publish_failed":  PublishFailed,
		"connect_failed":  ConnectFailed,
		"invalid_address": InvalidAddress,
		"timeout":         Timeout,
		"not_ready":       NotReady,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := errors.New("nack")
	err := Wrap(BusError, "scd4x.read", cause)

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the cause")
	}
	if !errors.Is(err, BusError) {
		t.Fatal("errors.Is should match the bare code")
	}
	if errors.Is(err, PublishFailed) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if got := Of(err); got != BusError {
		t.Fatalf("Of = %q, want %q", got, BusError)
	}
	if got, want := err.Error(), "scd4x.read: bus_error: nack"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(BusError, "op", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be OK")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("Of(plain error) should be Error")
	}
	if Of(Timeout) != Timeout {
		t.Fatal("Of(Code) should return the code")
	}
}
