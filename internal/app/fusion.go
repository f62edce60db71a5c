// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/core"
	"github.com/relabs-tech/fusion_computer/internal/env"
	"github.com/relabs-tech/fusion_computer/internal/gps"
	"github.com/relabs-tech/fusion_computer/internal/imu"
	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/orientation"
	"github.com/relabs-tech/fusion_computer/internal/scheduler"
	"github.com/relabs-tech/fusion_computer/internal/state"
	"github.com/relabs-tech/fusion_computer/internal/updates"
)

// Estimate is the published snapshot of the fused state.
type Estimate struct {
	Time     float64          `json:"time"`
	Position [3]float64       `json:"position"` // m, local ENU
	Velocity [3]float64       `json:"velocity"` // m/s, local ENU
	Attitude orientation.Pose `json:"attitude"`
}

// RunFusion runs the estimator daemon: subscribes to the sensor reading
// topics, turns readings into measurements, schedules them in
// capture-time order against the filter history, and publishes fused
// estimates.
func RunFusion() error {
	cfg := config.Get()

	filterCfg := core.DefaultConfig()
	if cfg.FilterBufferSize > 0 {
		filterCfg.BufferSize = cfg.FilterBufferSize
	}
	if cfg.FilterInitVariance > 0 {
		filterCfg.InitVariance = cfg.FilterInitVariance
	}
	filt := core.NewFilter(filterCfg)

	schedCfg := scheduler.DefaultConfig()
	if cfg.SchedSettleMS > 0 {
		schedCfg.SettleWindow = time.Duration(cfg.SchedSettleMS) * time.Millisecond
	}
	if cfg.SchedMaxDelayMS > 0 {
		schedCfg.MaxDelay = time.Duration(cfg.SchedMaxDelayMS) * time.Millisecond
	}
	if cfg.SchedIntervalMS > 0 {
		schedCfg.Interval = time.Duration(cfg.SchedIntervalMS) * time.Millisecond
	}
	sched := scheduler.New(filt, schedCfg)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDFusion)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("fusion: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Startup staging: the IMU contributes the attitude init (tilt from
	// the first accel reading), the GPS contributes position/velocity
	// once the first valid fix anchors the ENU origin. Each contribution
	// is its own init measurement.
	var (
		initMu      sync.Mutex
		imuInitSent bool
		origin      *gps.Origin
		baroRef     float64
		haveBaroRef bool
	)

	imuToken := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("fusion: imu unmarshal error: %v", err)
			return
		}

		initMu.Lock()
		if !imuInitSent && !filt.Running() {
			imuInitSent = true
			m := measurement.NewInit(true, time.Now)
			m.SetReadings(s.Gyro, s.Accel)
			pose := orientation.ComputePoseFromAccel(s.Accel[0], s.Accel[1], s.Accel[2])
			m.SetStateValue(state.Attitude, []float64{pose.Roll, pose.Pitch, pose.Yaw})
			sched.ApplyInit(m)
			log.Printf("fusion: attitude init staged from first IMU sample (roll=%.3f pitch=%.3f)",
				pose.Roll, pose.Pitch)
		}
		initMu.Unlock()

		filt.HandleIMU(s)
	})
	if imuToken.Wait(); imuToken.Error() != nil {
		return imuToken.Error()
	}

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("fusion: gps unmarshal error: %v", err)
			return
		}
		if !f.Valid() {
			log.Printf("fusion: skipping void GPS fix at t=%.3f", f.Time)
			return
		}

		initMu.Lock()
		if origin == nil {
			origin = &gps.Origin{Latitude: f.Latitude, Longitude: f.Longitude, Altitude: f.Altitude}
			log.Printf("fusion: ENU origin anchored at lat=%.6f lon=%.6f alt=%.1f",
				origin.Latitude, origin.Longitude, origin.Altitude)
			if !filt.Running() {
				m := measurement.NewInit(false, time.Now)
				m.SetStateValue(state.Position, []float64{0, 0, 0})
				m.SetStateValue(state.Velocity, []float64{0, 0, 0})
				sched.ApplyInit(m)
				log.Println("fusion: position/velocity init staged from first GPS fix")
			}
		}
		o := *origin
		initMu.Unlock()

		sched.Add(measurement.MakeFrom(updates.NewPosition(cfg.NoiseGPSPosition, o), &f, f.Time))
	})
	if gpsToken.Wait(); gpsToken.Error() != nil {
		return gpsToken.Error()
	}

	baroToken := client.Subscribe(cfg.TopicBaro, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("fusion: baro unmarshal error: %v", err)
			return
		}

		initMu.Lock()
		if !haveBaroRef && s.Pressure > 0 {
			baroRef = s.Altitude()
			haveBaroRef = true
			log.Printf("fusion: baro reference altitude %.1f m", baroRef)
		}
		ref := baroRef
		initMu.Unlock()

		sched.Add(measurement.MakeFrom(updates.NewBaro(cfg.NoiseBaroAltitude, ref), &s, s.Time))
	})
	if baroToken.Wait(); baroToken.Error() != nil {
		return baroToken.Error()
	}

	rangeToken := client.Subscribe(cfg.TopicRange, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r updates.RangeReading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("fusion: range unmarshal error: %v", err)
			return
		}
		sched.Add(measurement.MakeFrom(updates.NewRange(cfg.NoiseRange), &r, r.Time))
	})
	if rangeToken.Wait(); rangeToken.Error() != nil {
		return rangeToken.Error()
	}

	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r updates.PoseReading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("fusion: pose unmarshal error: %v", err)
			return
		}
		sched.Add(measurement.MakeFrom(updates.NewPose(cfg.NoisePosePosition, cfg.NoisePoseAttitude), &r, r.Time))
	})
	if poseToken.Wait(); poseToken.Error() != nil {
		return poseToken.Error()
	}

	go sched.Run()
	log.Println("fusion: scheduler running")

	// Publish the newest estimate at the dispatch cadence.
	pubTicker := time.NewTicker(schedCfg.Interval * 5)
	defer pubTicker.Stop()
	go func() {
		for range pubTicker.C {
			st := filt.Newest()
			if st == nil || !filt.Running() {
				continue
			}
			att := st.Value(state.Attitude)
			est := Estimate{
				Time:     st.Time,
				Position: toVec3(st.Value(state.Position)),
				Velocity: toVec3(st.Value(state.Velocity)),
				Attitude: orientation.Pose{Roll: att[0], Pitch: att[1], Yaw: att[2]},
			}
			payload, err := json.Marshal(est)
			if err != nil {
				log.Printf("fusion: estimate marshal error: %v", err)
				continue
			}
			client.Publish(cfg.TopicEstimate, 0, true, payload)
		}
	}()

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("fusion: shutting down")
	sched.Stop()
	return nil
}

func toVec3(v []float64) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}
