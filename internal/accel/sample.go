package accel

import (
	"fmt"
	"time"
)

// Axis identifies one accelerometer axis. Axes are always processed in
// X, Y, Z order.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Axes lists the axes in processing order.
var Axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// MarshalText encodes the axis as "x", "y" or "z".
func (a Axis) MarshalText() ([]byte, error) {
	if a < X || a > Z {
		return nil, fmt.Errorf("accel: invalid axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText accepts "x", "y" or "z" in either case.
func (a *Axis) UnmarshalText(b []byte) error {
	switch string(b) {
	case "x", "X":
		*a = X
	case "y", "Y":
		*a = Y
	case "z", "Z":
		*a = Z
	default:
		return fmt.Errorf("accel: invalid axis %q", b)
	}
	return nil
}

// RawSample holds one raw count per axis, as read from the sensor.
type RawSample struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// At returns the raw count for axis a.
func (r RawSample) At(a Axis) int16 {
	switch a {
	case Y:
		return r.Y
	case Z:
		return r.Z
	}
	return r.X
}

// Reading is the calibrated value of one axis for one period.
// Valid is false when the bus read failed; Value then holds the last good value.
type Reading struct {
	Axis  Axis    `json:"axis"`
	Raw   int16   `json:"raw"`
	Value float64 `json:"value"` // g
	Valid bool    `json:"valid"`
}

// Sample is the set of three readings taken in one reporting period.
type Sample struct {
	Time     time.Time  `json:"time"`
	Readings [3]Reading `json:"readings"` // indexed by Axis
}

// At returns the reading for axis a.
func (s Sample) At(a Axis) Reading {
	return s.Readings[a]
}

// Raw returns the raw counts of the sample.
func (s Sample) Raw() RawSample {
	return RawSample{X: s.Readings[X].Raw, Y: s.Readings[Y].Raw, Z: s.Readings[Z].Raw}
}
