// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration converts raw accelerometer counts to g using a
// single-point, per-axis offset and a shared scale factor:
//
//	calibrated = (raw + offset[axis]) * scale
package calibration

import (
	"errors"
	"math"

	"github.com/relabs-tech/accel_node/internal/accel"
)

// DefaultScale is the ADXL345 full-resolution sensitivity, 3.9 mg/LSB.
const DefaultScale = 3.9 / 1000

// Default offsets for the reference sensor unit. X and Y remove a zero bias;
// Z also accounts for the 1 g seen with the board lying flat.
const (
	DefaultOffsetX = -24
	DefaultOffsetY = 9
	DefaultOffsetZ = 8
)

// ErrNoSamples is returned by Estimate when it has nothing to average.
var ErrNoSamples = errors.New("calibration: no samples")

// Coefficients is an immutable calibration set.
type Coefficients struct {
	Offset [3]int  // indexed by accel.Axis
	Scale  float64 // g per count
}

// Default returns the reference calibration.
func Default() Coefficients {
	return Coefficients{
		Offset: [3]int{DefaultOffsetX, DefaultOffsetY, DefaultOffsetZ},
		Scale:  DefaultScale,
	}
}

// New builds coefficients from explicit values.
func New(offsetX, offsetY, offsetZ int, scale float64) Coefficients {
	return Coefficients{Offset: [3]int{offsetX, offsetY, offsetZ}, Scale: scale}
}

// Apply converts a raw count on axis a to g.
func (c Coefficients) Apply(a accel.Axis, raw int16) float64 {
	return float64(int(raw)+c.Offset[a]) * c.Scale
}

// Estimate derives single-point offsets from samples taken with the device
// at rest, flat, Z axis up. X and Y are expected to read 0 g and Z 1 g.
func Estimate(samples []accel.RawSample, scale float64) (Coefficients, error) {
	if len(samples) == 0 {
		return Coefficients{}, ErrNoSamples
	}
	if scale <= 0 {
		return Coefficients{}, errors.New("calibration: scale must be positive")
	}

	mean := Mean(samples)
	oneG := math.Round(1 / scale)

	return Coefficients{
		Offset: [3]int{
			int(math.Round(-mean[accel.X])),
			int(math.Round(-mean[accel.Y])),
			int(math.Round(oneG - mean[accel.Z])),
		},
		Scale: scale,
	}, nil
}

// Mean returns the per-axis mean of samples in counts.
func Mean(samples []accel.RawSample) [3]float64 {
	var sum [3]float64
	for _, s := range samples {
		for _, a := range accel.Axes {
			sum[a] += float64(s.At(a))
		}
	}
	n := float64(len(samples))
	if n == 0 {
		return sum
	}
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
}

// StdDev returns the per-axis population standard deviation in counts. It is
// used to judge whether the device was still during capture.
func StdDev(samples []accel.RawSample) [3]float64 {
	var out [3]float64
	if len(samples) == 0 {
		return out
	}
	mean := Mean(samples)
	for _, s := range samples {
		for _, a := range accel.Axes {
			d := float64(s.At(a)) - mean[a]
			out[a] += d * d
		}
	}
	n := float64(len(samples))
	for i := range out {
		out[i] = math.Sqrt(out[i] / n)
	}
	return out
}

// Stillness thresholds on the average per-axis standard deviation, in counts.
const (
	stillStdGood = 3.0
	stillStdBad  = 12.0
	confFloor    = 0.05
)

// Stillness maps the capture noise to a confidence in [0.05, 1]: 1 below
// stillStdGood, the floor above stillStdBad, linear in between.
func Stillness(std [3]float64) float64 {
	s := (std[0] + std[1] + std[2]) / 3
	switch {
	case s <= stillStdGood:
		return 1.0
	case s >= stillStdBad:
		return confFloor
	}
	t := (s - stillStdGood) / (stillStdBad - stillStdGood)
	return 1.0 - (1.0-confFloor)*t
}
