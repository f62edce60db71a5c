package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/sensors"
)

// RunBaroProducer samples the BMP over SPI at the configured interval
// and publishes pressure samples as JSON.
func RunBaroProducer() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBaro)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("baro producer connected to MQTT broker at %s", cfg.MQTTBroker)

	interval := cfg.BaroSampleInterval
	if interval <= 0 {
		interval = 100
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		sample, err := sensors.ReadBaro()
		if err != nil {
			log.Printf("baro read error: %v", err)
			continue
		}

		payload, err := json.Marshal(sample)
		if err != nil {
			log.Printf("baro JSON marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicBaro, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("baro publish error: %v", token.Error())
		}
	}
	return nil
}
