// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/gps"
	"github.com/relabs-tech/flight_computer/internal/imu"
	"github.com/relabs-tech/flight_computer/internal/orientation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// MonitorState holds the latest message seen on each telemetry topic.
type MonitorState struct {
	mu sync.RWMutex

	sample     imu.Sample
	haveSample bool

	demands     imu.Demands
	haveDemands bool

	pose     orientation.Pose
	havePose bool

	fix     gps.Fix
	haveFix bool
}

// stateSnapshot is the JSON shape served over /api/state and the
// WebSocket stream. Missing sections are null.
type stateSnapshot struct {
	IMU     *imu.Sample       `json:"imu,omitempty"`
	Demands *imu.Demands      `json:"demands,omitempty"`
	Pose    *orientation.Pose `json:"pose,omitempty"`
	GPS     *gps.Fix          `json:"gps,omitempty"`
}

func (s *MonitorState) snapshot() stateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap stateSnapshot
	if s.haveSample {
		sample := s.sample
		snap.IMU = &sample
	}
	if s.haveDemands {
		demands := s.demands
		snap.Demands = &demands
	}
	if s.havePose {
		pose := s.pose
		snap.Pose = &pose
	}
	if s.haveFix {
		fix := s.fix
		snap.GPS = &fix
	}
	return snap
}

// RunMonitor subscribes to the telemetry topics and serves the latest
// state over HTTP, plus a live WebSocket stream for the dashboard.
func RunMonitor() error {
	cfg := config.Get()
	state := &MonitorState{}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDMonitor)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("monitor: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to each telemetry topic and update state
	subscriptions := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.TopicIMU, func(_ mqtt.Client, msg mqtt.Message) {
			var s imu.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("monitor: imu unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.sample = s
			state.haveSample = true
			state.mu.Unlock()
		}},
		{cfg.TopicDemands, func(_ mqtt.Client, msg mqtt.Message) {
			var d imu.Demands
			if err := json.Unmarshal(msg.Payload(), &d); err != nil {
				log.Printf("monitor: demands unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.demands = d
			state.haveDemands = true
			state.mu.Unlock()
		}},
		{cfg.TopicPose, func(_ mqtt.Client, msg mqtt.Message) {
			var p orientation.Pose
			if err := json.Unmarshal(msg.Payload(), &p); err != nil {
				log.Printf("monitor: pose unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.pose = p
			state.havePose = true
			state.mu.Unlock()
		}},
		{cfg.TopicGPS, func(_ mqtt.Client, msg mqtt.Message) {
			var f gps.Fix
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				log.Printf("monitor: gps unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.fix = f
			state.haveFix = true
			state.mu.Unlock()
		}},
	}

	for _, sub := range subscriptions {
		token := client.Subscribe(sub.topic, 0, sub.handler)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("monitor: subscribed to %s", sub.topic)
	}

	// 3) JSON API endpoint: latest state of everything
	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		snap := state.snapshot()
		if snap.IMU == nil && snap.Demands == nil && snap.Pose == nil && snap.GPS == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("monitor: json encode error: %v", err)
		}
	})

	// 4) WebSocket live stream: push a snapshot every 100ms
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("monitor: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(state.snapshot()); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("monitor: websocket write error: %v", err)
				}
				return
			}
		}
	})

	// 5) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("monitor: web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
