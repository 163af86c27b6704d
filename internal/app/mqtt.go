// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/hitl_bridge/internal/config"
)

const mqttWaitTimeout = 5 * time.Second

// connectMQTT connects one tool's client; role keeps client IDs unique
// when several tools share a broker.
func connectMQTT(cfg config.MQTTConfig, role string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-" + role).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttWaitTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// mqttPublisher returns a publish function bound to client.
func mqttPublisher(client mqtt.Client, retained bool) func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, retained, payload)
		if !token.WaitTimeout(mqttWaitTimeout) {
			return fmt.Errorf("publish %s: timed out", topic)
		}
		return token.Error()
	}
}

func subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func publishJSON(publish func(string, []byte) error, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return publish(topic, payload)
}
