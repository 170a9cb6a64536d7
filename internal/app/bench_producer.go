package app

import (
	"encoding/json"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/imu"
	"github.com/relabs-tech/flight_computer/internal/orientation"
)

// RunBenchProducer publishes synthetic pose and demand telemetry in place
// of the hardware producer, so the console, monitor, and display can be
// exercised on a desk with nothing but a broker running.
func RunBenchProducer() error {
	log.Println("starting bench telemetry producer, no hardware attached")

	cfg := config.Get()
	src := orientation.NewBenchSource()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for range ticker.C {
		pose, err := src.Next()
		if err != nil {
			log.Printf("bench pose: %v", err)
			continue
		}

		if payload, err := json.Marshal(pose); err != nil {
			log.Printf("pose marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicPose, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (pose): %v", token.Error())
			continue
		}

		// A slow stick sweep, enough to see the consumers move.
		t := time.Since(start).Seconds()
		demands := imu.Demands{
			Throttle: math.Sin(t * 0.3),
			Roll:     0.5 * math.Sin(t*0.9),
			Pitch:    0.5 * math.Cos(t*0.6),
			Yaw:      0.3 * math.Sin(t*0.4),
		}

		if payload, err := json.Marshal(demands); err != nil {
			log.Printf("demands marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicDemands, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (demands): %v", token.Error())
		}
	}
	return nil
}
