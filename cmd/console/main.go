// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/app"
)

func main() {
	period := flag.Duration("period", app.MockPeriod, "reporting period")
	flag.Parse()

	log.Println("starting accel-node (mock console)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, os.Stdout, *period); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
