package app

import (
	"fmt"
	"image"
	"image/draw"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/config"
)

// panel is the part of *ssd1306.Dev the display uses.
type panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display shows the last sample on a 128x64 SSD1306 panel.
type Display struct {
	dev panel
}

// NewDisplay initializes the SSD1306 on bus and shows the splash screen. The
// driver always addresses the panel at config.DisplayAddr.
func NewDisplay(bus i2c.Bus) (*Display, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X on %s", config.DisplayAddr, bus)

	d := &Display{dev: dev}
	if err := d.splash(); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}
	return d, nil
}

// Observe renders s. Draw errors are logged; the display never blocks reporting.
func (d *Display) Observe(s accel.Sample) {
	if err := d.dev.Draw(d.dev.Bounds(), renderSample(s), image.Point{}); err != nil {
		log.Printf("display: error updating display: %v", err)
	}
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	draw.Draw(img, img.Bounds(), &image.Uniform{image1bit.Off}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func renderSample(s accel.Sample) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if s.Time.IsZero() {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Accelerometer")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	for i, a := range accel.Axes {
		rd := s.At(a)
		mark := " "
		if !rd.Valid {
			mark = "?"
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(fmt.Sprintf("%s:%+7.3fg%s%6d", a, rd.Value, mark, rd.Raw))
	}
	drawer.Dot = fixed.P(0, 56)
	drawer.DrawString(s.Time.Format("15:04:05"))
	return img
}

func (d *Display) splash() error {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Accel Node")

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("ADXL345")

	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}
