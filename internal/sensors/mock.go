// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"math"
	"time"

	"github.com/relabs-tech/accel_node/internal/accel"
)

// countsPerG is the nominal full-resolution sensitivity (3.9 mg/LSB).
const countsPerG = 256

// mockSource simulates a slowly tilting board: gravity swings between the
// axes and the configured bias is added on top.
type mockSource struct {
	start time.Time
	bias  accel.RawSample
	now   func() time.Time
}

// NewMockSource creates an AxisReader that needs no hardware. bias is added
// to every reading, the way a real unit reads off zero.
func NewMockSource(bias accel.RawSample) AxisReader {
	return &mockSource{start: time.Now(), bias: bias, now: time.Now}
}

func (m *mockSource) ReadAxis(ctx context.Context, a accel.Axis) (int16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	elapsed := m.now().Sub(m.start).Seconds()

	roll := 0.35 * math.Sin(elapsed*0.5)
	pitch := 0.25 * math.Cos(elapsed*0.3)

	var g float64
	switch a {
	case accel.X:
		g = math.Sin(pitch)
	case accel.Y:
		g = -math.Sin(roll) * math.Cos(pitch)
	default:
		g = math.Cos(roll) * math.Cos(pitch)
	}
	return int16(math.Round(g*countsPerG)) + m.bias.At(a), nil
}
