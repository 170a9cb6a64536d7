package receiver

import (
	"bytes"
	"io"
	"testing"
)

func ibusTestFrame(channels [ibusNumChannels]uint16) []byte {
	frame := make([]byte, ibusFrameLen)
	frame[0] = ibusHeaderLen
	frame[1] = ibusHeaderCmd
	for i, ch := range channels {
		frame[2+2*i] = byte(ch)
		frame[3+2*i] = byte(ch >> 8)
	}
	sum := uint16(0xFFFF)
	for _, b := range frame[:ibusFrameLen-2] {
		sum -= uint16(b)
	}
	frame[ibusFrameLen-2] = byte(sum)
	frame[ibusFrameLen-1] = byte(sum >> 8)
	return frame
}

func feed(t *testing.T, stream []byte) *IBus {
	t.Helper()
	ib := NewIBus(io.NopCloser(bytes.NewReader(stream)))
	ib.readFrames() // returns at EOF
	return ib
}

func TestIBusParsesFrame(t *testing.T) {
	var channels [ibusNumChannels]uint16
	for i := range channels {
		channels[i] = uint16(1000 + 50*i)
	}
	ib := feed(t, ibusTestFrame(channels))

	var axes [6]int32
	if err := ib.Poll(&axes); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	for i := range axes {
		if want := int32(1000 + 50*i); axes[i] != want {
			t.Errorf("axes[%d] = %d, want %d", i, axes[i], want)
		}
	}
}

func TestIBusResyncsOnGarbage(t *testing.T) {
	var channels [ibusNumChannels]uint16
	for i := range channels {
		channels[i] = 1500
	}
	stream := append([]byte{0x00, 0x20, 0x99, 0xFF}, ibusTestFrame(channels)...)
	ib := feed(t, stream)

	var axes [6]int32
	if err := ib.Poll(&axes); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if axes[0] != 1500 {
		t.Errorf("axes[0] = %d, want 1500", axes[0])
	}
}

func TestIBusRejectsBadChecksum(t *testing.T) {
	var good, bad [ibusNumChannels]uint16
	for i := range good {
		good[i] = 1200
		bad[i] = 1900
	}
	corrupted := ibusTestFrame(bad)
	corrupted[ibusFrameLen-1] ^= 0xFF

	ib := feed(t, append(ibusTestFrame(good), corrupted...))

	var axes [6]int32
	if err := ib.Poll(&axes); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if axes[0] != 1200 {
		t.Errorf("axes[0] = %d, want 1200 (corrupt frame must be dropped)", axes[0])
	}
}

func TestIBusPollBeforeFirstFrame(t *testing.T) {
	ib := NewIBus(io.NopCloser(bytes.NewReader(nil)))
	var axes [6]int32
	if err := ib.Poll(&axes); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	for i, v := range axes {
		if v != ibusBaseline {
			t.Errorf("axes[%d] = %d before first frame, want baseline %d", i, v, ibusBaseline)
		}
	}
}

func TestIBusNormalization(t *testing.T) {
	// End to end with the controller: pulse widths map into [-1,1].
	var channels [ibusNumChannels]uint16
	channels[0] = 2000 // throttle full
	channels[1] = 1500 // roll centered
	channels[2] = 1000 // pitch low
	channels[3] = 1750
	channels[4] = 1250
	ib := feed(t, ibusTestFrame(channels))

	c := NewController(ib, Config{AxisMap: [5]int{0, 1, 2, 3, 4}})
	var demands [5]float64
	c.Poll(0.01, &demands)

	want := [5]float64{1, 0, -1, 0.5, -0.5}
	for k := range want {
		if demands[k] != want[k] {
			t.Errorf("demands[%d] = %v, want %v", k, demands[k], want[k])
		}
	}
}
