// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

// benchSource synthesizes a slow attitude sweep so the console, monitor,
// and display can be driven on a desk without flight hardware. Roll and
// pitch oscillate inside small-attitude bounds; yaw wraps through a full
// turn in [-180, 180).
type benchSource struct {
	start time.Time
}

func NewBenchSource() Source {
	return &benchSource{start: time.Now()}
}

func (s *benchSource) Next() (Pose, error) {
	t := time.Since(s.start).Seconds()

	return Pose{
		Roll:  25 * math.Sin(t*0.8),
		Pitch: 10 * math.Sin(t*0.5),
		Yaw:   math.Mod(t*20, 360) - 180,
	}, nil
}
