package main

import (
	"log"

	"github.com/relabs-tech/fusion_computer/internal/app"
	"github.com/relabs-tech/fusion_computer/internal/config"
)

func main() {
	log.Println("starting fusion-computer GPS producer (NMEA → MQTT)")

	if err := config.InitGlobal("fusion_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunGPSProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
