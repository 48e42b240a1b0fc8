// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package i2cbus

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Open initializes the periph host, opens the named bus ("" selects the first
// one found) and applies the master clock.
func Open(name string, clock physic.Frequency, timeout time.Duration) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", err)
	}

	port, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open bus %q: %w", name, err)
	}

	b := New(port, timeout)
	if clock > 0 {
		if err := b.SetSpeed(clock); err != nil {
			port.Close()
			return nil, err
		}
	}
	log.Printf("i2c: opened %s at %s (timeout %s)", b, clock, b.Timeout())
	return b, nil
}
