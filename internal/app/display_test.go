package app

import (
	"errors"
	"image"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/config"
	"github.com/relabs-tech/accel_node/internal/i2cbus"
)

type fakePanel struct {
	frames []image.Image
	err    error
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.frames = append(p.frames, src)
	return p.err
}

func litPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.At(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestDisplayObserveDrawsFrame(t *testing.T) {
	p := &fakePanel{}
	d := &Display{dev: p}

	d.Observe(accel.Sample{})
	d.Observe(accel.Sample{
		Time: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Readings: [3]accel.Reading{
			{Axis: accel.X, Raw: 24, Value: 0, Valid: true},
			{Axis: accel.Y, Raw: -9, Value: 0, Valid: true},
			{Axis: accel.Z, Raw: 248, Value: 1.0, Valid: false},
		},
	})

	if len(p.frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(p.frames))
	}
	waiting, sample := litPixels(p.frames[0]), litPixels(p.frames[1])
	if waiting == 0 || sample == 0 {
		t.Errorf("expected text on both frames, got %d and %d lit pixels", waiting, sample)
	}
	if sample <= waiting {
		t.Errorf("sample frame should carry more text than the waiting frame (%d <= %d)", sample, waiting)
	}
}

func TestDisplayObserveSurvivesDrawError(t *testing.T) {
	p := &fakePanel{err: errors.New("i2c nack")}
	d := &Display{dev: p}
	d.Observe(accel.Sample{Time: time.Now()})
	if len(p.frames) != 1 {
		t.Errorf("expected draw attempt, got %d", len(p.frames))
	}
}

func TestNewDisplayWritesThroughSharedBus(t *testing.T) {
	rec := &i2ctest.Record{}
	bus := i2cbus.New(rec, 0)

	d, err := NewDisplay(bus)
	if err != nil {
		t.Fatalf("NewDisplay failed: %v", err)
	}

	rec.Lock()
	initOps := len(rec.Ops)
	rec.Unlock()
	if initOps == 0 {
		t.Fatal("expected init and splash writes")
	}

	d.Observe(accel.Sample{Time: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)})

	rec.Lock()
	defer rec.Unlock()
	if len(rec.Ops) <= initOps {
		t.Errorf("expected frame writes after Observe, got %d ops (init %d)", len(rec.Ops), initOps)
	}
	for i, op := range rec.Ops {
		if op.Addr != config.DisplayAddr {
			t.Fatalf("op %d went to 0x%02X, want 0x%02X", i, op.Addr, config.DisplayAddr)
		}
		if len(op.R) != 0 {
			t.Errorf("op %d unexpectedly read %d bytes", i, len(op.R))
		}
	}
}
