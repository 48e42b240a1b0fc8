// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package i2cbus provides register-level read/write primitives over a shared
// two-wire bus. Each primitive is one or two bus transactions, bounded by a
// fixed timeout, and never retried.
package i2cbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

const (
	// DefaultTimeout bounds the wait for bus availability plus the transfer itself.
	DefaultTimeout = 1000 * time.Millisecond
	// DefaultClock is the master clock applied by Open.
	DefaultClock = 100 * physic.KiloHertz
)

var (
	// ErrTimeout is returned when the bus stays busy or the device does not
	// complete the transfer within the timeout.
	ErrTimeout = errors.New("i2c: bus timeout")
	// ErrNack wraps any error reported by the platform driver for a transfer.
	ErrNack = errors.New("i2c: device did not acknowledge")
)

// Bus serialises register transactions on a platform I2C port.
//
// Bus itself implements periph's i2c.Bus, so periph device drivers sharing the
// same wires go through the same lock and timeout.
type Bus struct {
	port    drivers.I2C
	name    string
	timeout time.Duration
	sem     chan struct{}
}

var _ i2c.Bus = (*Bus)(nil)

// New wraps port. A non-positive timeout selects DefaultTimeout.
func New(port drivers.I2C, timeout time.Duration) *Bus {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := "i2c"
	if s, ok := port.(fmt.Stringer); ok {
		name = s.String()
	}
	return &Bus{
		port:    port,
		name:    name,
		timeout: timeout,
		sem:     make(chan struct{}, 1),
	}
}

func (b *Bus) String() string {
	return b.name
}

// Timeout returns the per-transaction timeout.
func (b *Bus) Timeout() time.Duration {
	return b.timeout
}

// SetSpeed changes the bus clock when the underlying port supports it.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	s, ok := b.port.(interface{ SetSpeed(physic.Frequency) error })
	if !ok {
		return nil
	}
	if err := s.SetSpeed(f); err != nil {
		return fmt.Errorf("i2c: set speed %s: %w", f, err)
	}
	return nil
}

// Close closes the underlying port if it is closable.
func (b *Bus) Close() error {
	if c, ok := b.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Tx performs a raw transaction with the default timeout. It exists so Bus
// satisfies i2c.Bus.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.tx(context.Background(), addr, w, r)
}

// tx runs one transaction. At most one transaction is in flight; the wait for
// the bus and the transfer share a single timeout window.
func (b *Bus) tx(ctx context.Context, addr uint16, w, r []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctxErr(ctx)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-b.sem }()
		done <- b.port.Tx(addr, w, r)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNack, err)
		}
		return nil
	case <-ctx.Done():
		return ctxErr(ctx)
	}
}

func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

func (b *Bus) logFailure(op string, addr, reg uint8, err error) {
	log.WithFields(log.Fields{
		"bus":  b.name,
		"addr": fmt.Sprintf("0x%02X", addr),
		"reg":  fmt.Sprintf("0x%02X", reg),
	}).Warnf("i2c %s failed: %v", op, err)
}

// WriteUint8 writes one data byte to register reg of the device at addr.
func (b *Bus) WriteUint8(ctx context.Context, addr, reg, value uint8) error {
	if err := b.tx(ctx, uint16(addr), []byte{reg, value}, nil); err != nil {
		b.logFailure("write_uint8", addr, reg, err)
		return err
	}
	return nil
}

// WriteUint16 writes a 16-bit value, most significant byte first.
func (b *Bus) WriteUint16(ctx context.Context, addr, reg uint8, value uint16) error {
	w := []byte{reg, 0, 0}
	binary.BigEndian.PutUint16(w[1:], value)
	if err := b.tx(ctx, uint16(addr), w, nil); err != nil {
		b.logFailure("write_uint16", addr, reg, err)
		return err
	}
	return nil
}

// WriteBuffer writes data after the register selector. Empty data selects the
// register without transferring any data byte.
func (b *Bus) WriteBuffer(ctx context.Context, addr, reg uint8, data []byte) error {
	w := make([]byte, 0, 1+len(data))
	w = append(w, reg)
	w = append(w, data...)
	if err := b.tx(ctx, uint16(addr), w, nil); err != nil {
		b.logFailure("write_buffer", addr, reg, err)
		return err
	}
	return nil
}

// ReadUint8 selects reg and reads one byte in a second transaction.
func (b *Bus) ReadUint8(ctx context.Context, addr, reg uint8) (uint8, error) {
	buf, err := b.read(ctx, "read_uint8", addr, reg, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 selects reg and reads two bytes. The first byte on the wire is the
// most significant one, matching WriteUint16.
func (b *Bus) ReadUint16(ctx context.Context, addr, reg uint8) (uint16, error) {
	buf, err := b.read(ctx, "read_uint16", addr, reg, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadBuffer selects reg and reads n bytes.
func (b *Bus) ReadBuffer(ctx context.Context, addr, reg uint8, n int) ([]byte, error) {
	return b.read(ctx, "read_buffer", addr, reg, n)
}

func (b *Bus) read(ctx context.Context, op string, addr, reg uint8, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("i2c %s: invalid length %d", op, n)
	}
	if err := b.WriteBuffer(ctx, addr, reg, nil); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := b.tx(ctx, uint16(addr), nil, buf); err != nil {
		b.logFailure(op, addr, reg, err)
		return nil, err
	}
	return buf, nil
}
