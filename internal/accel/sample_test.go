package accel

import (
	"encoding/json"
	"testing"
)

func TestSampleJSONUsesAxisNames(t *testing.T) {
	s := Sample{Readings: [3]Reading{{Axis: X, Raw: 1}, {Axis: Y, Raw: 2}, {Axis: Z, Raw: 3}}}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Sample
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if back.Raw() != (RawSample{X: 1, Y: 2, Z: 3}) || back.At(Z).Axis != Z {
		t.Errorf("unexpected sample %+v from %s", back, b)
	}
}

func TestAxisRejectsUnknown(t *testing.T) {
	var a Axis
	if err := a.UnmarshalText([]byte("w")); err == nil {
		t.Error("expected error for axis w")
	}
	if _, err := Axis(7).MarshalText(); err == nil {
		t.Error("expected error for axis 7")
	}
}
