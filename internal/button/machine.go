// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package button turns a reset push-button into network-reset and
// factory-reset requests based on how long it is held.
package button

import (
	"fmt"
	"time"
)

// State is the position of the press state machine.
type State int

const (
	Idle State = iota
	Pressed
	ShortFired
	LongFired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case ShortFired:
		return "short-fired"
	case LongFired:
		return "long-fired"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event is what a transition asks the caller to do.
type Event int

const (
	None Event = iota
	NetworkReset
	FactoryReset
)

func (e Event) String() string {
	switch e {
	case None:
		return "none"
	case NetworkReset:
		return "network-reset"
	case FactoryReset:
		return "factory-reset"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Machine classifies one press at a time:
//
//	idle -> pressed -> short-fired  (released after >= short, < long)
//	                -> long-fired   (held >= long)
//	                -> idle         (released before short)
//
// ShortFired and LongFired are the outcome of the last press; the next press
// starts over from either of them.
type Machine struct {
	short time.Duration
	long  time.Duration
	state State
	since time.Time
}

// NewMachine creates a machine with the given hold thresholds. long must be
// greater than short.
func NewMachine(short, long time.Duration) (*Machine, error) {
	if short <= 0 || long <= short {
		return nil, fmt.Errorf("button: invalid thresholds short=%v long=%v", short, long)
	}
	return &Machine{short: short, long: long}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Press records the button going down at now.
func (m *Machine) Press(now time.Time) Event {
	if m.state == Pressed {
		return None
	}
	m.state = Pressed
	m.since = now
	return None
}

// Tick advances time while nothing changed on the pin. A press held past the
// long threshold fires without waiting for the release.
func (m *Machine) Tick(now time.Time) Event {
	if m.state == Pressed && now.Sub(m.since) >= m.long {
		m.state = LongFired
		return FactoryReset
	}
	return None
}

// Release records the button going up at now.
func (m *Machine) Release(now time.Time) Event {
	if m.state != Pressed {
		// LongFired already reported while held
		return None
	}
	held := now.Sub(m.since)
	switch {
	case held >= m.long:
		m.state = LongFired
		return FactoryReset
	case held >= m.short:
		m.state = ShortFired
		return NetworkReset
	}
	m.state = Idle
	return None
}
