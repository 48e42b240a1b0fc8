// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/calibration"
	"github.com/relabs-tech/accel_node/internal/cloud"
	"github.com/relabs-tech/accel_node/internal/config"
	"github.com/relabs-tech/accel_node/internal/sensors"
)

// MockPeriod is the default period of the mock console.
const MockPeriod = 500 * time.Millisecond

// consoleSink prints reports instead of publishing them.
type consoleSink struct {
	out io.Writer
}

func (s consoleSink) UpdateAndReport(p *cloud.Param, v float64) error {
	_, err := fmt.Fprintf(s.out, "%-8s %s=%+.4f\n", p.Device().Name, p.Name, v)
	return err
}

// cancelledBias is the sensor bias that coeff exactly removes.
func cancelledBias(coeff calibration.Coefficients) accel.RawSample {
	return accel.RawSample{
		X: int16(-coeff.Offset[accel.X]),
		Y: int16(-coeff.Offset[accel.Y]),
		Z: int16(-coeff.Offset[accel.Z]),
	}
}

// RunMockConsole runs the reporting loop against a simulated sensor and
// prints what would be published. No hardware or broker is needed.
func RunMockConsole(ctx context.Context, out io.Writer, period time.Duration) error {
	coeff := calibration.Default()
	bias := cancelledBias(coeff)

	node := cloud.NewNode("mock", nodeName, nodeType, nil)
	targets, err := RegisterDevices(node)
	if err != nil {
		return err
	}

	r, err := NewReporter(sensors.NewMockSource(bias), coeff, consoleSink{out: out}, targets, period, config.ReadErrorReportInvalid)
	if err != nil {
		return err
	}
	r.Run(ctx)
	return nil
}

// RunMockProducer is a full node publishing to the broker, fed by the simulated
// sensor. It lets the console and web tools run without hardware.
func RunMockProducer(ctx context.Context) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-mock")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)

	node := cloud.NewNode(cfg.NodeID, nodeName, nodeType, client)
	targets, err := RegisterDevices(node)
	if err != nil {
		return err
	}
	if err := node.PublishConfig(); err != nil {
		log.Errorf("node config not published: %v", err)
	}

	coeff := Coefficients(cfg)
	r, err := NewReporter(sensors.NewMockSource(cancelledBias(coeff)), coeff, node, targets,
		time.Duration(cfg.ReportingPeriod)*time.Second, cfg.ReadErrorPolicy)
	if err != nil {
		return err
	}
	log.Printf("mock node %s publishing to %s", node.ID, node.ParamsTopic())
	r.Run(ctx)
	return nil
}
