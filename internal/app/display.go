package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/fusion_computer/internal/config"
)

// RunDisplay shows the fused estimate on the SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	var (
		mu       sync.RWMutex
		last     Estimate
		haveLast bool
	)

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicEstimate, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e Estimate
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("display: estimate unmarshal error: %v", err)
			return
		}
		mu.Lock()
		last = e
		haveLast = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicEstimate)

	interval := cfg.DisplayUpdateInterval
	if interval <= 0 {
		interval = 250
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		mu.RLock()
		e := last
		ok := haveLast
		mu.RUnlock()

		lines := []string{"fusion: waiting..."}
		if ok {
			lines = []string{
				fmt.Sprintf("E%7.1f N%7.1f", e.Position[0], e.Position[1]),
				fmt.Sprintf("U%7.1f m", e.Position[2]),
				fmt.Sprintf("v %5.1f %5.1f %5.1f", e.Velocity[0], e.Velocity[1], e.Velocity[2]),
				fmt.Sprintf("rpy %4.2f %4.2f %4.2f", e.Attitude.Roll, e.Attitude.Pitch, e.Attitude.Yaw),
			}
		}

		if err := drawLines(dev, lines); err != nil {
			log.Printf("display: draw error: %v", err)
		}
	}
	return nil
}

// drawLines renders text lines onto the 128x64 panel with the basic
// 7x13 font.
func drawLines(dev *ssd1306.Dev, lines []string) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
