// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// One-shot register dump for bring-up. Opens the IMU bus named in the
// config, reads every register in the debug map, and prints them with
// their bit field annotations. Nothing is written to the device.
//
// Run:
//
//	go run ./cmd/regdump -config ./fc_config.txt
package main

import (
	"flag"
	"fmt"
	"log"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/flight_computer/internal/bus"
	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./fc_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph host init: %v", err)
	}

	tr, magTr, err := openTransport(cfg)
	if err != nil {
		log.Fatalf("failed to open IMU bus: %v", err)
	}

	fmt.Printf("== %s IMU registers ==\n", cfg.Board)
	for _, reg := range sensors.DebugRegisterMap() {
		value, err := tr.ReadRegister(reg.Address)
		if err != nil {
			fmt.Printf("0x%02X %-14s <read error: %v>\n", reg.Address, reg.Name, err)
			continue
		}
		fmt.Printf("0x%02X %-14s = 0x%02X  (%s)\n", reg.Address, reg.Name, value, reg.Access)
		for _, field := range reg.BitFields {
			fmt.Printf("       %-7s %-18s %s\n", field.Bits, field.Name, field.Description)
		}
	}

	// The magnetometer sits behind the bypass mux and only answers on I2C.
	if magTr != nil {
		fmt.Println("\n== AK8963 registers ==")
		for addr := byte(sensors.AK8963RegWIA); addr <= sensors.AK8963RegASAX+2; addr++ {
			value, err := magTr.ReadRegister(addr)
			if err != nil {
				fmt.Printf("0x%02X <read error: %v>\n", addr, err)
				continue
			}
			fmt.Printf("0x%02X = 0x%02X\n", addr, value)
		}
	}
}

func openTransport(cfg *config.Config) (tr, magTr bus.Transport, err error) {
	switch cfg.Board {
	case "f3evo":
		t, err := bus.NewSPITransport(cfg.IMUSPIDevice, cfg.IMUCSPin, 7*physic.MegaHertz)
		if err != nil {
			return nil, nil, err
		}
		return t, nil, nil
	case "butterfly":
		t, err := bus.NewI2CTransport(cfg.IMUI2CBus, cfg.IMUI2CAddr)
		if err != nil {
			return nil, nil, err
		}
		return t, t.NewI2CDevice(sensors.AK8963I2CAddr), nil
	default:
		return nil, nil, fmt.Errorf("unknown board %q", cfg.Board)
	}
}
