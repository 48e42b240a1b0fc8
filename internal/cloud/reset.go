// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cloud

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// disconnect quiesce time in milliseconds
const quiesceMS = 250

// NetworkReset drops the broker session and establishes a new one.
func (n *Node) NetworkReset(ctx context.Context) error {
	log.Warnf("cloud: network reset requested for node %s", n.ID)

	if n.session.IsConnected() {
		n.session.Disconnect(quiesceMS)
	}

	token := n.session.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("cloud: reconnect: %w", err)
	}

	log.Printf("cloud: node %s reconnected", n.ID)
	return nil
}

// FactoryReset clears everything the node has published, restores initial
// param values, reconnects and publishes the configuration again.
func (n *Node) FactoryReset(ctx context.Context) error {
	log.Warnf("cloud: factory reset requested for node %s", n.ID)

	// An empty retained payload removes the retained message.
	for _, topic := range []string{n.ConfigTopic(), n.ParamsTopic()} {
		if err := n.publish(topic, true, []byte{}); err != nil {
			log.Printf("cloud: clear %s: %v", topic, err)
		}
	}

	n.mu.Lock()
	for _, d := range n.devices {
		for _, p := range d.params {
			p.value = p.initial
		}
	}
	n.mu.Unlock()

	if err := n.NetworkReset(ctx); err != nil {
		return err
	}
	return n.PublishConfig()
}
