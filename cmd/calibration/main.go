// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Guided single-point calibration for the ADXL345.
//
// The board is laid flat, Z axis up, and left untouched while raw samples are
// captured. X and Y should then read 0 g and Z 1 g; the per-axis offsets that
// make that true are printed as config lines ready to paste into
// accel_config.txt, and the full result is stored as JSON.
//
// Run:
//
//	go run ./cmd/calibration -config accel_config.txt
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/app"
	"github.com/relabs-tech/accel_node/internal/calibration"
	"github.com/relabs-tech/accel_node/internal/config"
	"github.com/relabs-tech/accel_node/internal/sensors"
)

const sampleHz = 100 // target loop frequency (best-effort)

// ---------- Data model (JSON output) ----------

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vec3(v [3]float64) Vec3 {
	return Vec3{X: v[accel.X], Y: v[accel.Y], Z: v[accel.Z]}
}

type CalibrationResult struct {
	SchemaVersion int    `json:"schema_version"`
	CalibrationAt string `json:"calibration_at"` // RFC3339
	Device        string `json:"device"`

	Samples     int     `json:"samples"`
	DurationSec float64 `json:"duration_sec"`
	Mean        Vec3    `json:"mean"`   // counts
	StdDev      Vec3    `json:"stddev"` // counts

	// calibrated = (raw + offset) * scale
	Offset     [3]int  `json:"offset"`
	Scale      float64 `json:"scale"`
	Confidence float64 `json:"confidence"`

	Notes []string `json:"notes,omitempty"`
}

// ---------- Main ----------

func main() {
	in := bufio.NewReader(os.Stdin)

	configPath := flag.String("config", "accel_config.txt", "Path to configuration file")
	duration := flag.Duration("duration", 10*time.Second, "capture duration")
	out := flag.String("out", "accel_calibration.json", "result file")
	flag.Parse()

	fmt.Println("=== Guided Calibration (ADXL345, single point) ===")
	fmt.Printf("This workflow will prompt you in the console and store results in ./%s\n", *out)
	fmt.Println()

	if err := config.InitGlobal(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	cfg := config.Get()

	bus, err := app.OpenBus(cfg)
	if err != nil {
		fatal(err)
	}
	defer bus.Close()

	ctx := context.Background()
	dev, err := sensors.NewADXL345(ctx, bus, uint8(cfg.ADXL345I2CAddr))
	if err != nil {
		fatal(err)
	}

	fmt.Println("Place the board flat, Z axis pointing up, on a stable surface and do not touch it.")
	waitEnter(in, fmt.Sprintf("Press ENTER to start capture (%s)...", *duration))

	samples, err := captureSamples(ctx, dev, *duration)
	if err != nil {
		fatal(err)
	}

	coeff, err := calibration.Estimate(samples, cfg.CalScale)
	if err != nil {
		fatal(err)
	}
	std := calibration.StdDev(samples)

	res := CalibrationResult{
		SchemaVersion: 1,
		CalibrationAt: time.Now().Format(time.RFC3339),
		Device:        fmt.Sprintf("adxl345@0x%02X", dev.Addr()),
		Samples:       len(samples),
		DurationSec:   duration.Seconds(),
		Mean:          vec3(calibration.Mean(samples)),
		StdDev:        vec3(std),
		Offset:        coeff.Offset,
		Scale:         coeff.Scale,
		Confidence:    calibration.Stillness(std),
	}
	if res.Confidence < 0.5 {
		res.Notes = append(res.Notes, "device was moving during capture; repeat on a stable surface")
	}

	fmt.Println()
	fmt.Printf("Samples: %d  mean=(%.1f, %.1f, %.1f)  stddev=(%.2f, %.2f, %.2f)  confidence=%.2f\n",
		res.Samples, res.Mean.X, res.Mean.Y, res.Mean.Z, res.StdDev.X, res.StdDev.Y, res.StdDev.Z, res.Confidence)
	for _, n := range res.Notes {
		fmt.Println("NOTE:", n)
	}

	fmt.Println()
	fmt.Println("Add to your config file:")
	fmt.Printf("CAL_OFFSET_X=%d\n", coeff.Offset[accel.X])
	fmt.Printf("CAL_OFFSET_Y=%d\n", coeff.Offset[accel.Y])
	fmt.Printf("CAL_OFFSET_Z=%d\n", coeff.Offset[accel.Z])

	if err := writeResult(*out, res); err != nil {
		fatal(err)
	}
}

func captureSamples(ctx context.Context, dev *sensors.ADXL345, dur time.Duration) ([]accel.RawSample, error) {
	deadline := time.Now().Add(dur)
	targetPeriod := time.Second / time.Duration(sampleHz)

	var samples []accel.RawSample
	for time.Now().Before(deadline) {
		r, err := dev.ReadRaw(ctx)
		if err != nil {
			return nil, err
		}
		samples = append(samples, r)
		time.Sleep(targetPeriod)
	}
	return samples, nil
}

func writeResult(name string, res CalibrationResult) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("\nWrote: %s\n", name)
	return nil
}

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
