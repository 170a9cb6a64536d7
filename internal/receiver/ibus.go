// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import (
	"fmt"
	"io"
	"log"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
)

// FlySky iBUS framing: a 32-byte frame holding 14 little-endian channel
// words bounded by a length/command header and a 16-bit checksum.
const (
	ibusFrameLen    = 32
	ibusHeaderLen   = 0x20 // first byte: total frame length
	ibusHeaderCmd   = 0x40 // second byte: channel-data command
	ibusNumChannels = 14

	// Channel values are servo pulse widths: 1000..2000 µs around 1500.
	ibusBaseline  = 1500
	ibusFullScale = 500
)

// IBus reads FlySky iBUS frames from a serial receiver and exposes the first
// six channels as raw axes. A reader goroutine owns the port; Poll only
// copies the latest complete frame, so the control cycle never blocks on the
// wire.
type IBus struct {
	r io.ReadCloser

	mu       sync.Mutex
	channels [ibusNumChannels]uint16
	haveData bool
}

// OpenIBus opens the receiver's serial port and starts the frame reader.
func OpenIBus(port string, baud uint) (*IBus, error) {
	p, err := serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("ibus: open %s: %w", port, err)
	}
	log.Printf("ibus: receiver port opened on %s at %d baud", port, baud)

	ib := NewIBus(p)
	go ib.readFrames()
	return ib, nil
}

// NewIBus wraps an already open byte stream without starting the reader;
// callers drive readFrames themselves (tests feed a canned stream).
func NewIBus(r io.ReadCloser) *IBus {
	return &IBus{r: r}
}

// readFrames resynchronizes on the header pair, verifies the checksum, and
// publishes each valid frame. It exits when the port is closed.
func (ib *IBus) readFrames() {
	buf := make([]byte, 1)
	frame := make([]byte, ibusFrameLen)

	readByte := func() (byte, error) {
		if _, err := io.ReadFull(ib.r, buf); err != nil {
			return 0, err
		}
		return buf[0], nil
	}

	for {
		b, err := readByte()
		if err != nil {
			return
		}
		if b != ibusHeaderLen {
			continue
		}
		if b, err = readByte(); err != nil {
			return
		}
		if b != ibusHeaderCmd {
			continue
		}

		frame[0] = ibusHeaderLen
		frame[1] = ibusHeaderCmd
		if _, err := io.ReadFull(ib.r, frame[2:]); err != nil {
			return
		}
		if !ibusChecksumOK(frame) {
			continue
		}

		ib.mu.Lock()
		for i := 0; i < ibusNumChannels; i++ {
			ib.channels[i] = uint16(frame[2+2*i]) | uint16(frame[3+2*i])<<8
		}
		ib.haveData = true
		ib.mu.Unlock()
	}
}

// ibusChecksumOK verifies the trailing checksum: 0xFFFF minus the sum of
// every preceding byte.
func ibusChecksumOK(frame []byte) bool {
	sum := uint16(0xFFFF)
	for _, b := range frame[:ibusFrameLen-2] {
		sum -= uint16(b)
	}
	got := uint16(frame[ibusFrameLen-2]) | uint16(frame[ibusFrameLen-1])<<8
	return sum == got
}

// Poll copies the latest frame's first six channels. Before the first valid
// frame every axis reads the baseline (sticks centered, throttle low is the
// transmitter's job, not ours).
func (ib *IBus) Poll(axes *[6]int32) error {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if !ib.haveData {
		for i := range axes {
			axes[i] = ibusBaseline
		}
		return nil
	}
	for i := range axes {
		axes[i] = int32(ib.channels[i])
	}
	return nil
}

func (ib *IBus) Baseline() int32 {
	return ibusBaseline
}

func (ib *IBus) FullScale() int32 {
	return ibusFullScale
}

// Close shuts the serial port down, stopping the reader goroutine.
func (ib *IBus) Close() error {
	return ib.r.Close()
}
