// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/button"
	"github.com/relabs-tech/accel_node/internal/calibration"
	"github.com/relabs-tech/accel_node/internal/cloud"
	"github.com/relabs-tech/accel_node/internal/config"
	"github.com/relabs-tech/accel_node/internal/i2cbus"
	"github.com/relabs-tech/accel_node/internal/sensors"
)

const (
	nodeName = "Accelerometer"
	nodeType = "Accelerometer"
)

// DeviceNames are the cloud devices carrying each axis, indexed by accel.Axis.
var DeviceNames = [3]string{"Accel X", "Accel Y", "Accel Z"}

// RegisterDevices adds one temperature-typed device per axis to node and
// returns their reporting targets.
func RegisterDevices(node *cloud.Node) ([3]*cloud.Param, error) {
	var targets [3]*cloud.Param
	for _, a := range accel.Axes {
		dev := node.AddTemperatureSensor(DeviceNames[a], 0)
		p := dev.ParamByType(cloud.ParamTypeTemperature)
		if p == nil {
			return targets, fmt.Errorf("device %s has no %s param", dev.Name, cloud.ParamTypeTemperature)
		}
		targets[a] = p
	}
	return targets, nil
}

// Coefficients builds the calibration from the configuration.
func Coefficients(cfg *config.Config) calibration.Coefficients {
	return calibration.New(cfg.CalOffsetX, cfg.CalOffsetY, cfg.CalOffsetZ, cfg.CalScale)
}

// OpenBus opens the configured I2C bus.
func OpenBus(cfg *config.Config) (*i2cbus.Bus, error) {
	return i2cbus.Open(cfg.I2CBus,
		physic.Frequency(cfg.I2CClockHz)*physic.Hertz,
		time.Duration(cfg.I2CTimeoutMS)*time.Millisecond)
}

// RunAccelNode connects the node to the broker, starts the sampling loop and
// watches the reset button until ctx is cancelled.
func RunAccelNode(ctx context.Context) error {
	log.Println("starting accelerometer node")

	cfg := config.Get()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// --- register node and devices ---
	node := cloud.NewNode(cfg.NodeID, nodeName, nodeType, client)
	targets, err := RegisterDevices(node)
	if err != nil {
		return err
	}
	if err := node.PublishConfig(); err != nil {
		log.Errorf("node config not published: %v", err)
	}

	var wg sync.WaitGroup

	var status *StatusServer
	if cfg.WebServerPort > 0 {
		status = NewStatusServer()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := status.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.WebServerPort)); err != nil {
				log.Errorf("web server: %v", err)
			}
		}()
	}

	// A failing sensor subsystem only disables sampling.
	bus, err := startSampling(ctx, &wg, cfg, node, targets, status)
	if err != nil {
		log.Errorf("sensor subsystem disabled: %v", err)
	}
	if bus != nil {
		defer bus.Close()
	}

	if cfg.ButtonGPIO != "" {
		if err := startButton(ctx, &wg, cfg, node); err != nil {
			log.Errorf("reset button disabled: %v", err)
		}
	} else {
		log.Println("no BUTTON_GPIO configured, reset button disabled")
	}

	<-ctx.Done()
	log.Println("accelerometer node shutting down")
	wg.Wait()
	return nil
}

func startSampling(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, sink ParamReporter, targets [3]*cloud.Param, status *StatusServer) (*i2cbus.Bus, error) {
	bus, err := OpenBus(cfg)
	if err != nil {
		return nil, err
	}

	sensor, err := sensors.NewADXL345(ctx, bus, uint8(cfg.ADXL345I2CAddr))
	if err != nil {
		return bus, err
	}

	reporter, err := NewReporter(sensor, Coefficients(cfg), sink, targets,
		time.Duration(cfg.ReportingPeriod)*time.Second, cfg.ReadErrorPolicy)
	if err != nil {
		return bus, err
	}

	if cfg.DisplayI2CAddr != 0 {
		display, err := NewDisplay(bus)
		if err != nil {
			log.Errorf("display disabled: %v", err)
		} else {
			reporter.AddObserver(display)
		}
	}
	if status != nil {
		reporter.AddObserver(status)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()
	return bus, nil
}

func startButton(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, r button.Resetter) error {
	btn, err := button.Open(cfg.ButtonGPIO, gpio.Level(cfg.ButtonActiveLevel != 0))
	if err != nil {
		return err
	}

	watcher, err := btn.Register(
		time.Duration(cfg.WiFiResetButtonTimeout)*time.Second,
		time.Duration(cfg.FactoryResetButtonTimeout)*time.Second,
		r,
	)
	if err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()
	return nil
}
