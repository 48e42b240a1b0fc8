// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package button

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultPoll is how often the pin is sampled.
const DefaultPoll = 20 * time.Millisecond

// Resetter performs the reset actions. *cloud.Node satisfies it.
type Resetter interface {
	NetworkReset(ctx context.Context) error
	FactoryReset(ctx context.Context) error
}

// Button is a push-button on a GPIO input and the level it reads when pressed.
type Button struct {
	pin    gpio.PinIn
	active gpio.Level
}

// New configures pin as an input pulled towards the released level.
func New(pin gpio.PinIn, active gpio.Level) (*Button, error) {
	pull := gpio.PullUp
	if active == gpio.High {
		pull = gpio.PullDown
	}
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button %s: configure input: %w", pin, err)
	}
	return &Button{pin: pin, active: active}, nil
}

// Open looks up a host GPIO by name and wraps it.
func Open(name string, active gpio.Level) (*Button, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("button: host init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("button: no GPIO named %q", name)
	}
	return New(pin, active)
}

// IsPressed reports whether the pin is at its active level.
func (b *Button) IsPressed() bool {
	return b.pin.Read() == b.active
}

func (b *Button) String() string {
	return fmt.Sprintf("%s (active %s)", b.pin, b.active)
}

// Register binds the button to r with the short (network reset) and long
// (factory reset) hold thresholds.
func (b *Button) Register(short, long time.Duration, r Resetter) (*Watcher, error) {
	m, err := NewMachine(short, long)
	if err != nil {
		return nil, err
	}
	return &Watcher{btn: b, machine: m, resetter: r, poll: DefaultPoll}, nil
}

// Watcher samples a registered button and runs the reset it asks for.
type Watcher struct {
	btn      *Button
	machine  *Machine
	resetter Resetter
	poll     time.Duration
	down     bool
}

// Run polls the button until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	log.Printf("button: watching %s (network reset %v, factory reset %v)", w.btn, w.machine.short, w.machine.long)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.step(ctx, now)
		}
	}
}

// step samples the pin once and acts on the resulting event.
func (w *Watcher) step(ctx context.Context, now time.Time) Event {
	pressed := w.btn.IsPressed()

	var ev Event
	switch {
	case pressed && !w.down:
		ev = w.machine.Press(now)
	case !pressed && w.down:
		ev = w.machine.Release(now)
	default:
		ev = w.machine.Tick(now)
	}
	w.down = pressed

	switch ev {
	case NetworkReset:
		log.Warn("button: short hold, resetting network")
		if err := w.resetter.NetworkReset(ctx); err != nil {
			log.Errorf("button: network reset: %v", err)
		}
	case FactoryReset:
		log.Warn("button: long hold, resetting to factory defaults")
		if err := w.resetter.FactoryReset(ctx); err != nil {
			log.Errorf("button: factory reset: %v", err)
		}
	}
	return ev
}
