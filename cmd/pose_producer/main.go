package main

import (
	"log"

	"github.com/relabs-tech/fusion_computer/internal/app"
	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/orientation"
)

func main() {
	log.Println("starting fusion-computer pose producer (mock → MQTT)")

	if err := config.InitGlobal("fusion_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunPoseProducer(orientation.NewMockSource()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
