package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/flight_computer/internal/app"
	"github.com/relabs-tech/flight_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "./fc_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting bench producer (synthetic telemetry to MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunBenchProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
