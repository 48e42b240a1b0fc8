// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/i2cbus"
)

// ADXL345 register addresses.
const (
	RegDevID      = 0x00
	RegOfsX       = 0x1E
	RegOfsY       = 0x1F
	RegOfsZ       = 0x20
	RegBWRate     = 0x2C
	RegPowerCtl   = 0x2D
	RegIntEnable  = 0x2E
	RegIntSource  = 0x30
	RegDataFormat = 0x31
	RegDataX0     = 0x32
	RegDataY0     = 0x34
	RegDataZ0     = 0x36
	RegFIFOCtl    = 0x38
)

const (
	// DefaultAddr is the ADXL345 address with ALT ADDRESS tied low.
	DefaultAddr = 0x53
	// DeviceID is the fixed DEVID register content.
	DeviceID = 0xE5

	rate100Hz     = 0x0A
	fullRes2G     = 0x08 // FULL_RES, right-justified, ±2 g
	measureEnable = 0x08
)

// ErrWrongDevice is returned when DEVID does not identify an ADXL345.
var ErrWrongDevice = errors.New("adxl345: unexpected device id")

var dataRegs = [3]uint8{RegDataX0, RegDataY0, RegDataZ0}

// AxisReader is the accessor the reporting loop samples from.
type AxisReader interface {
	ReadAxis(ctx context.Context, a accel.Axis) (int16, error)
}

// ADXL345 is the register accessor for one accelerometer on an I2C bus.
type ADXL345 struct {
	bus  *i2cbus.Bus
	addr uint8
}

var _ AxisReader = (*ADXL345)(nil)

// NewADXL345 verifies the device identity and puts it in measurement mode.
func NewADXL345(ctx context.Context, bus *i2cbus.Bus, addr uint8) (*ADXL345, error) {
	d := &ADXL345{bus: bus, addr: addr}
	if err := d.Init(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Init (re)configures the device: 100 Hz output rate, full resolution ±2 g,
// measurement mode.
func (d *ADXL345) Init(ctx context.Context) error {
	id, err := d.bus.ReadUint8(ctx, d.addr, RegDevID)
	if err != nil {
		return fmt.Errorf("adxl345 (0x%02X): read DEVID: %w", d.addr, err)
	}
	if id != DeviceID {
		return fmt.Errorf("%w: 0x%02X at 0x%02X, want 0x%02X", ErrWrongDevice, id, d.addr, DeviceID)
	}

	if err := d.bus.WriteUint8(ctx, d.addr, RegBWRate, rate100Hz); err != nil {
		return fmt.Errorf("adxl345 (0x%02X): set rate: %w", d.addr, err)
	}
	if err := d.bus.WriteUint8(ctx, d.addr, RegDataFormat, fullRes2G); err != nil {
		return fmt.Errorf("adxl345 (0x%02X): set data format: %w", d.addr, err)
	}
	if err := d.bus.WriteUint8(ctx, d.addr, RegPowerCtl, measureEnable); err != nil {
		return fmt.Errorf("adxl345 (0x%02X): enable measurement: %w", d.addr, err)
	}

	log.Printf("adxl345: initialized at 0x%02X on %s", d.addr, d.bus)
	return nil
}

// Addr returns the device address.
func (d *ADXL345) Addr() uint8 {
	return d.addr
}

// ReadAxis reads one axis. The data registers are little-endian, so the pair
// is pulled with a single buffer read and combined here.
func (d *ADXL345) ReadAxis(ctx context.Context, a accel.Axis) (int16, error) {
	if a < accel.X || a > accel.Z {
		return 0, fmt.Errorf("adxl345: invalid axis %d", int(a))
	}
	buf, err := d.bus.ReadBuffer(ctx, d.addr, dataRegs[a], 2)
	if err != nil {
		return 0, fmt.Errorf("adxl345 accel %s: %w", a, err)
	}
	return int16(binary.LittleEndian.Uint16(buf)), nil
}

// ReadX reads the X axis.
func (d *ADXL345) ReadX(ctx context.Context) (int16, error) { return d.ReadAxis(ctx, accel.X) }

// ReadY reads the Y axis.
func (d *ADXL345) ReadY(ctx context.Context) (int16, error) { return d.ReadAxis(ctx, accel.Y) }

// ReadZ reads the Z axis.
func (d *ADXL345) ReadZ(ctx context.Context) (int16, error) { return d.ReadAxis(ctx, accel.Z) }

// ReadRaw reads all three axes, X then Y then Z.
func (d *ADXL345) ReadRaw(ctx context.Context) (accel.RawSample, error) {
	var out [3]int16
	for _, a := range accel.Axes {
		v, err := d.ReadAxis(ctx, a)
		if err != nil {
			return accel.RawSample{}, err
		}
		out[a] = v
	}
	return accel.RawSample{X: out[accel.X], Y: out[accel.Y], Z: out[accel.Z]}, nil
}

// ReadRegister reads a single register.
func (d *ADXL345) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	v, err := d.bus.ReadUint8(ctx, d.addr, reg)
	if err != nil {
		return 0, fmt.Errorf("adxl345 read 0x%02X: %w", reg, err)
	}
	return v, nil
}

// WriteRegister writes a single register. Only registers documented as
// writable in the register map are accepted.
func (d *ADXL345) WriteRegister(ctx context.Context, reg, value byte) error {
	if !IsWritable(reg) {
		return fmt.Errorf("adxl345: register 0x%02X is not writable", reg)
	}
	if err := d.bus.WriteUint8(ctx, d.addr, reg, value); err != nil {
		return fmt.Errorf("adxl345 write 0x%02X: %w", reg, err)
	}
	return nil
}

// ReadAllRegisters reads every register in the register map.
func (d *ADXL345) ReadAllRegisters(ctx context.Context) (map[byte]byte, error) {
	return d.readRegisters(ctx, func(RegisterInfo) bool { return true })
}

// ExportRegisterConfig reads the writable registers, i.e. the ones that make
// up the device configuration.
func (d *ADXL345) ExportRegisterConfig(ctx context.Context) (map[byte]byte, error) {
	return d.readRegisters(ctx, func(r RegisterInfo) bool { return r.Access == "RW" })
}

func (d *ADXL345) readRegisters(ctx context.Context, keep func(RegisterInfo) bool) (map[byte]byte, error) {
	out := make(map[byte]byte)
	for _, r := range GetADXL345RegisterMap() {
		if !keep(r) {
			continue
		}
		addr, err := r.Addr()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadRegister(ctx, addr)
		if err != nil {
			return nil, err
		}
		out[addr] = v
	}
	return out, nil
}

// SortedAddrs returns the keys of a register dump in ascending order.
func SortedAddrs(regs map[byte]byte) []byte {
	addrs := make([]byte, 0, len(regs))
	for a := range regs {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
