package ipcerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatsWithAndWithoutOutput(t *testing.T) {
	cause := errors.New("boom")

	e := New(Decode, "", cause)
	if got, want := e.Error(), "decode: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	e = New(NoOutput, "HDMI-1", cause)
	if got, want := e.Error(), "no_output: HDMI-1: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorUnwrapsForErrorsIs(t *testing.T) {
	sentinel := errors.New("sentinel")
	e := New(IOError, "eDP-1", fmt.Errorf("write: %w", sentinel))
	if !errors.Is(e, sentinel) {
		t.Fatal("errors.Is should see through Error.Unwrap")
	}
}

func TestOnlyCompositorLostIsFatal(t *testing.T) {
	for k := Decode; k <= IOError; k++ {
		e := New(k, "", errors.New("x"))
		if e.Fatal() != (k == CompositorLost) {
			t.Errorf("Kind %v: Fatal() = %v", k, e.Fatal())
		}
	}
}

func TestKindStringIsStable(t *testing.T) {
	cases := map[Kind]string{
		Decode:              "decode",
		UnsupportedGeometry: "unsupported_geometry",
		ProtocolMismatch:    "protocol_mismatch",
		NoOutput:            "no_output",
		Busy:                "busy",
		CompositorLost:      "compositor_lost",
		IOError:             "io_error",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
