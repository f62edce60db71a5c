package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/orientation"
	"github.com/relabs-tech/fusion_computer/internal/updates"
)

// RunPoseProducer publishes 6-DoF pose readings from an orientation
// source (mock or a real external pose pipeline).
func RunPoseProducer(src orientation.Source) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDPose)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("pose producer connected to MQTT broker at %s", cfg.MQTTBroker)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		pose, err := src.Next()
		if err != nil {
			log.Printf("pose source error: %v", err)
			continue
		}

		reading := updates.PoseReading{
			Time:     float64(time.Now().UnixNano()) / 1e9,
			Attitude: pose,
		}

		payload, err := json.Marshal(reading)
		if err != nil {
			log.Printf("pose JSON marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicPose, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("pose publish error: %v", token.Error())
		}
	}
	return nil
}
