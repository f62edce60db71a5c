package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/imu"
)

// RunIMUProducer publishes inertial samples at the configured rate.
// Takes any imu.Source; the mock source stands in until a hardware
// driver lands.
func RunIMUProducer(src imu.Source) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDIMU)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("IMU producer connected to MQTT broker at %s", cfg.MQTTBroker)

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		sample, err := src.Next()
		if err != nil {
			log.Printf("IMU source error: %v", err)
			continue
		}

		payload, err := json.Marshal(sample)
		if err != nil {
			log.Printf("IMU JSON marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicIMU, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("IMU publish error: %v", token.Error())
		}
	}
	return nil
}
