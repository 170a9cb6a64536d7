// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package receiver turns raw human-input samples into bounded flight
// demands: throttle, roll, pitch, yaw, aux.
package receiver

import (
	"math"
	"time"
)

// Logical channel indices of a demand vector.
const (
	ChanThrottle = 0
	ChanRoll     = 1
	ChanPitch    = 2
	ChanYaw      = 3
	ChanAux      = 4

	NumChannels = 5
)

// ThrottleDeadband is the half-width of the zero zone applied to springy
// throttles before integration.
const ThrottleDeadband = 0.15

// nominalPollInterval stands in for the elapsed time of the very first poll,
// when there is no previous poll to measure against.
const nominalPollInterval = 10 * time.Millisecond

// RawSource supplies device-specific integer axis samples. Implementations:
// the iBUS serial receiver and the bench mock.
type RawSource interface {
	// Poll fills axes with the current raw sample. On error the previous
	// sample stays in effect; per-cycle staleness is normal operation.
	Poll(axes *[6]int32) error

	// Baseline is the device's center/neutral raw value.
	Baseline() int32

	// FullScale is the raw half-range used to normalize displacements.
	FullScale() int32
}

// Config selects the per-device channel mapping and throttle behavior.
type Config struct {
	// AxisMap maps logical channel index (throttle, roll, pitch, yaw,
	// aux) to raw device axis index. Fixed after construction.
	AxisMap [NumChannels]int

	// ReversedVerticals negates throttle and pitch, for devices whose
	// vertical axes read backwards.
	ReversedVerticals bool

	// SpringyThrottle marks self-centering throttles: displacement is
	// deadbanded and integrated into a persistent level instead of being
	// used directly.
	SpringyThrottle bool

	// UseButtonForAux pins the aux channel at -1; aux switching via an
	// axis is disabled entirely in that mode.
	UseButtonForAux bool

	// ThrottleRate is the springy-throttle integration rate in full-range
	// units per second. The legacy firmware added 0.01 per poll at
	// roughly 100 Hz; 1.0 reproduces that at the same call rate while
	// staying correct under variable scheduling.
	ThrottleRate float64
}

// Controller is the channel-normalization state machine. It owns the only
// cross-call mutable demand state (the throttle integrator) and must not be
// shared across threads; there is exactly one caller per instance.
type Controller struct {
	src RawSource
	cfg Config

	throttle float64
	axes     [6]int32
	demands  [NumChannels]float64

	now      func() time.Time
	lastPoll time.Time
}

// NewController builds a controller around a raw source. The throttle level
// starts at -1: "not yet armed/centered" until the first poll (springy mode
// keeps it authoritative, direct mode overwrites it immediately).
func NewController(src RawSource, cfg Config) *Controller {
	if cfg.ThrottleRate == 0 {
		cfg.ThrottleRate = 1.0
	}
	return &Controller{
		src:      src,
		cfg:      cfg,
		throttle: -1,
		now:      time.Now,
	}
}

// ReadChannel returns one demand channel, polling the device only on channel
// 0 so that a control cycle querying all five channels costs one device
// poll. Channel 0 always reports the throttle state.
func (c *Controller) ReadChannel(ch int) float64 {
	if ch == ChanThrottle {
		now := c.now()
		dt := nominalPollInterval.Seconds()
		if !c.lastPoll.IsZero() {
			dt = now.Sub(c.lastPoll).Seconds()
		}
		c.lastPoll = now
		c.Poll(dt, &c.demands)
		return c.demands[ChanThrottle]
	}
	return c.demands[ch]
}

// Poll runs one normalization step over dt elapsed seconds and writes all
// five demands. Channels 1..4 are instantaneous normalized values, nominally
// in [-1,1] but not clamped; channel 0 is the throttle state.
func (c *Controller) Poll(dt float64, demands *[NumChannels]float64) {
	// A failed device poll leaves the previous raw sample in effect.
	_ = c.src.Poll(&c.axes)

	baseline := c.src.Baseline()
	fullScale := float64(c.src.FullScale())
	for k := 0; k < NumChannels; k++ {
		demands[k] = float64(c.axes[c.cfg.AxisMap[k]]-baseline) / fullScale
	}

	if c.cfg.ReversedVerticals {
		demands[ChanThrottle] = -demands[ChanThrottle]
		demands[ChanPitch] = -demands[ChanPitch]
	}

	if c.cfg.UseButtonForAux {
		demands[ChanAux] = -1
	}

	if c.cfg.SpringyThrottle {
		d := Deadband(demands[ChanThrottle], ThrottleDeadband)
		c.throttle += d * c.cfg.ThrottleRate * dt
		c.throttle = constrainAbs(c.throttle, 1)
	} else {
		c.throttle = demands[ChanThrottle]
	}

	demands[ChanThrottle] = c.throttle
}

// Deadband suppresses inputs inside the zero zone and passes everything else
// through unchanged. The discontinuity at |x| == w is intentional; there is
// no rescaling of the remaining range.
func Deadband(x, w float64) float64 {
	if math.Abs(x) < w {
		return 0
	}
	return x
}

func constrainAbs(x, lim float64) float64 {
	if x < -lim {
		return -lim
	}
	if x > lim {
		return lim
	}
	return x
}
