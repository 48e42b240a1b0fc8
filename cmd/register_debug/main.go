// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/app"
	"github.com/relabs-tech/accel_node/internal/config"
	"github.com/relabs-tech/accel_node/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./accel_config.txt", "path to configuration file")
	addr := flag.String("addr", ":8081", "listen address")
	flag.Parse()

	log.Println("starting ADXL345 register debug tool (standalone)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	log.SetLevel(cfg.LogLevel)

	bus, err := app.OpenBus(cfg)
	if err != nil {
		log.Fatalf("failed to open I2C bus: %v", err)
	}
	defer bus.Close()

	dev, err := sensors.NewADXL345(context.Background(), bus, uint8(cfg.ADXL345I2CAddr))
	if err != nil {
		log.Fatalf("failed to initialize ADXL345: %v", err)
	}

	dbg := app.NewRegisterDebugger(dev, bus, app.Coefficients(cfg))

	log.Printf("Register debug tool listening on %s", *addr)
	log.Printf("websocket at ws://localhost%s/ws/registers, live data at /api/accel/live", *addr)
	if err := http.ListenAndServe(*addr, dbg.Handler()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
