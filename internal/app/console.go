package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/env"
	"github.com/relabs-tech/fusion_computer/internal/gps"
	"github.com/relabs-tech/fusion_computer/internal/imu"
)

// RunConsole subscribes to the reading and estimate topics and prints
// everything, mainly for bring-up and debugging.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to estimates
	estToken := client.Subscribe(cfg.TopicEstimate, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e Estimate
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("console: estimate unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[EST ]  t=%.3f  pos=(%7.2f %7.2f %7.2f)  vel=(%6.2f %6.2f %6.2f)  rpy=(%6.3f %6.3f %6.3f)\n",
			e.Time,
			e.Position[0], e.Position[1], e.Position[2],
			e.Velocity[0], e.Velocity[1], e.Velocity[2],
			e.Attitude.Roll, e.Attitude.Pitch, e.Attitude.Yaw,
		)
	})
	estToken.Wait()
	if estToken.Error() != nil {
		return estToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEstimate)

	// Subscribe to IMU
	imuToken := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: imu unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[IMU ]  t=%.3f  gyro=(%7.4f %7.4f %7.4f)  accel=(%7.3f %7.3f %7.3f)\n",
			s.Time, s.Gyro[0], s.Gyro[1], s.Gyro[2], s.Accel[0], s.Accel[1], s.Accel[2],
		)
	})
	imuToken.Wait()
	if imuToken.Error() != nil {
		return imuToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicIMU)

	// Subscribe to GPS
	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS ]  t=%.3f lat=%.6f lon=%.6f alt=%.1f speed=%.1fkn course=%.1f° validity=%s\n",
			f.Time, f.Latitude, f.Longitude, f.Altitude, f.SpeedKnots, f.CourseDeg, f.Validity,
		)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Subscribe to barometer
	baroToken := client.Subscribe(cfg.TopicBaro, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: baro unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[BARO]  t=%.3f  %.1f Pa  %.1f °C  alt=%.1f m\n",
			s.Time, s.Pressure, s.Temperature, s.Altitude(),
		)
	})
	baroToken.Wait()
	if baroToken.Error() != nil {
		return baroToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicBaro)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
