// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package board

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// PulseOutput drives a servo/ESC pulse width on one of four outputs.
type PulseOutput interface {
	WritePulse(index int, pulse time.Duration) error
}

// MotorBank maps normalized motor commands onto pulse widths. The scaling is
// linear and unvalidated: a command outside [0,1] produces a pulse outside
// the configured range, exactly as commanded.
type MotorBank struct {
	out      PulseOutput
	min, max time.Duration
}

func NewMotorBank(out PulseOutput, min, max time.Duration) *MotorBank {
	return &MotorBank{out: out, min: min, max: max}
}

// WriteMotor converts value in [0,1] to min + value*(max-min) and writes it.
func (b *MotorBank) WriteMotor(index int, value float64) {
	pulse := b.min + time.Duration(value*float64(b.max-b.min))
	if err := b.out.WritePulse(index, pulse); err != nil {
		log.Printf("motors: motor %d: %v", index, err)
	}
}

// Pulse returns the width WriteMotor would command for value, for logging
// and tests.
func (b *MotorBank) Pulse(value float64) time.Duration {
	return b.min + time.Duration(value*float64(b.max-b.min))
}

// gpioPulseOutput emits pulses as hardware PWM duty cycles on named GPIO
// pins.
type gpioPulseOutput struct {
	pins   [4]gpio.PinOut
	freq   physic.Frequency
	period time.Duration
}

// NewGPIOPulseOutput claims the four motor pins and fixes the PWM carrier
// frequency.
func NewGPIOPulseOutput(pinNames [4]string, freq physic.Frequency) (PulseOutput, error) {
	if freq <= 0 {
		return nil, fmt.Errorf("motors: invalid PWM frequency %v", freq)
	}
	out := &gpioPulseOutput{
		freq:   freq,
		period: freq.Period(),
	}
	for i, name := range pinNames {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("motors: pin %q not found", name)
		}
		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("motors: pin %q: %w", name, err)
		}
		out.pins[i] = pin
	}
	return out, nil
}

func (g *gpioPulseOutput) WritePulse(index int, pulse time.Duration) error {
	if index < 0 || index >= len(g.pins) {
		return fmt.Errorf("motor index %d out of range", index)
	}
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(pulse) / int64(g.period))
	if duty > gpio.DutyMax {
		duty = gpio.DutyMax
	}
	if duty < 0 {
		duty = 0
	}
	return g.pins[index].PWM(duty, g.freq)
}

// LED is the board status LED.
type LED interface {
	Set(on bool) error
}

type gpioLed struct {
	pin gpio.PinOut
}

func NewGPIOLed(pinName string) (LED, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("led: pin %q not found", pinName)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led: pin %q: %w", pinName, err)
	}
	return &gpioLed{pin: pin}, nil
}

func (l *gpioLed) Set(on bool) error {
	return l.pin.Out(gpio.Level(on))
}
