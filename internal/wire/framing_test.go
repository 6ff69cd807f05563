package wire

import (
	"bytes"
	"testing"
)

func TestFramerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf)
	payloads := [][]byte{
		[]byte(`{"id":"a","version":0,"type":"STATUS"}`),
		[]byte(`{}`),
		[]byte(``),
	}
	for _, p := range payloads {
		if err := f.WriteFrame(p); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range payloads {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestFramerRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	f := NewFramer(&buf)
	if _, err := f.ReadFrame(); err == nil {
		t.Fatal("expected error for oversized frame length")
	}
}
