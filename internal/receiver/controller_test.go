package receiver

import (
	"math"
	"testing"
	"time"
)

// stubSource plays back a fixed raw sample.
type stubSource struct {
	axes      [6]int32
	baseline  int32
	fullScale int32
	polls     int
	err       error
}

func (s *stubSource) Poll(axes *[6]int32) error {
	s.polls++
	if s.err != nil {
		return s.err
	}
	*axes = s.axes
	return nil
}

func (s *stubSource) Baseline() int32  { return s.baseline }
func (s *stubSource) FullScale() int32 { return s.fullScale }

func TestDeadband(t *testing.T) {
	tests := []struct {
		name string
		x, w float64
		want float64
	}{
		{"zero", 0, 0.15, 0},
		{"inside positive", 0.14, 0.15, 0},
		{"inside negative", -0.14, 0.15, 0},
		{"at edge", 0.15, 0.15, 0.15},
		{"at negative edge", -0.15, 0.15, -0.15},
		{"outside positive", 0.5, 0.15, 0.5},
		{"outside negative", -0.9, 0.15, -0.9},
		{"just outside", 0.1500001, 0.15, 0.1500001},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Deadband(tc.x, tc.w); got != tc.want {
				t.Errorf("Deadband(%v, %v) = %v, want %v", tc.x, tc.w, got, tc.want)
			}
		})
	}
}

func TestPollAxisMapping(t *testing.T) {
	// axis_map=[2,0,1,3,4], raw=[100..600], baseline=0, full_scale=1000:
	// channel 0 reads axis 2 -> 300/1000 = 0.3, and so on.
	src := &stubSource{
		axes:      [6]int32{100, 200, 300, 400, 500, 600},
		fullScale: 1000,
	}
	c := NewController(src, Config{AxisMap: [5]int{2, 0, 1, 3, 4}})

	var demands [5]float64
	c.Poll(0.01, &demands)

	want := [5]float64{0.3, 0.1, 0.2, 0.4, 0.5}
	for k := range want {
		if math.Abs(demands[k]-want[k]) > 1e-12 {
			t.Errorf("demands[%d] = %v, want %v", k, demands[k], want[k])
		}
	}
}

func TestPollBaselineSubtraction(t *testing.T) {
	src := &stubSource{
		axes:      [6]int32{2000, 1500, 1000, 1250, 1750, 1500},
		baseline:  1500,
		fullScale: 500,
	}
	c := NewController(src, Config{AxisMap: [5]int{0, 1, 2, 3, 4}})

	var demands [5]float64
	c.Poll(0.01, &demands)

	want := [5]float64{1, 0, -1, -0.5, 0.5}
	for k := range want {
		if math.Abs(demands[k]-want[k]) > 1e-12 {
			t.Errorf("demands[%d] = %v, want %v", k, demands[k], want[k])
		}
	}
}

func TestReversedVerticalsOnlyTouchesThrottleAndPitch(t *testing.T) {
	src := &stubSource{
		axes:      [6]int32{100, -200, 300, -400, 500, 0},
		fullScale: 1000,
	}
	cfg := Config{AxisMap: [5]int{0, 1, 2, 3, 4}}

	var plain, reversed [5]float64
	NewController(src, cfg).Poll(0.01, &plain)

	cfg.ReversedVerticals = true
	NewController(src, cfg).Poll(0.01, &reversed)

	if reversed[ChanThrottle] != -plain[ChanThrottle] {
		t.Errorf("throttle not negated: %v vs %v", reversed[ChanThrottle], plain[ChanThrottle])
	}
	if reversed[ChanPitch] != -plain[ChanPitch] {
		t.Errorf("pitch not negated: %v vs %v", reversed[ChanPitch], plain[ChanPitch])
	}
	for _, k := range []int{ChanRoll, ChanYaw, ChanAux} {
		if reversed[k] != plain[k] {
			t.Errorf("channel %d changed by reversed verticals: %v vs %v", k, reversed[k], plain[k])
		}
	}
}

func TestUseButtonForAuxPinsSentinel(t *testing.T) {
	src := &stubSource{
		axes:      [6]int32{0, 0, 0, 0, 900, 0},
		fullScale: 1000,
	}
	c := NewController(src, Config{AxisMap: [5]int{0, 1, 2, 3, 4}, UseButtonForAux: true})

	var demands [5]float64
	c.Poll(0.01, &demands)
	if demands[ChanAux] != -1 {
		t.Errorf("aux = %v, want -1 sentinel", demands[ChanAux])
	}
}

func TestSpringyThrottleIntegratorConverges(t *testing.T) {
	src := &stubSource{
		axes:      [6]int32{500, 0, 0, 0, 0, 0}, // constant +0.5 throttle displacement
		fullScale: 1000,
	}
	c := NewController(src, Config{
		AxisMap:         [5]int{0, 1, 2, 3, 4},
		SpringyThrottle: true,
		ThrottleRate:    1.0,
	})

	var demands [5]float64
	prev := -1.0
	for i := 0; i < 1000; i++ {
		c.Poll(0.01, &demands)
		if math.Abs(demands[ChanThrottle]) > 1 {
			t.Fatalf("throttle left [-1,1] at iteration %d: %v", i, demands[ChanThrottle])
		}
		if demands[ChanThrottle] < prev {
			t.Fatalf("throttle not monotonic under constant positive input at %d", i)
		}
		prev = demands[ChanThrottle]
	}
	if demands[ChanThrottle] != 1 {
		t.Errorf("throttle = %v after sustained input, want 1", demands[ChanThrottle])
	}

	// Constant negative displacement drives it back to -1.
	src.axes[0] = -1000
	for i := 0; i < 1000; i++ {
		c.Poll(0.01, &demands)
		if math.Abs(demands[ChanThrottle]) > 1 {
			t.Fatalf("throttle left [-1,1]: %v", demands[ChanThrottle])
		}
	}
	if demands[ChanThrottle] != -1 {
		t.Errorf("throttle = %v after sustained negative input, want -1", demands[ChanThrottle])
	}
}

func TestSpringyThrottleDeadbandHolds(t *testing.T) {
	// Displacement inside the deadband must not move the integrator.
	src := &stubSource{
		axes:      [6]int32{140, 0, 0, 0, 0, 0}, // 0.14 < 0.15
		fullScale: 1000,
	}
	c := NewController(src, Config{
		AxisMap:         [5]int{0, 1, 2, 3, 4},
		SpringyThrottle: true,
		ThrottleRate:    1.0,
	})

	var demands [5]float64
	for i := 0; i < 50; i++ {
		c.Poll(0.01, &demands)
	}
	if demands[ChanThrottle] != -1 {
		t.Errorf("throttle drifted inside deadband: %v", demands[ChanThrottle])
	}
}

func TestSpringyThrottleTimeScaled(t *testing.T) {
	mk := func() (*stubSource, *Controller) {
		src := &stubSource{axes: [6]int32{1000, 0, 0, 0, 0, 0}, fullScale: 1000}
		return src, NewController(src, Config{
			AxisMap:         [5]int{0, 1, 2, 3, 4},
			SpringyThrottle: true,
			ThrottleRate:    1.0,
		})
	}

	// 10 polls at 10 ms and 100 polls at 1 ms must integrate the same
	// total displacement.
	var a, b [5]float64
	_, ca := mk()
	for i := 0; i < 10; i++ {
		ca.Poll(0.010, &a)
	}
	_, cb := mk()
	for i := 0; i < 100; i++ {
		cb.Poll(0.001, &b)
	}
	if math.Abs(a[ChanThrottle]-b[ChanThrottle]) > 1e-9 {
		t.Errorf("integration depends on call rate: %v vs %v", a[ChanThrottle], b[ChanThrottle])
	}
}

func TestDirectThrottleTracksRawDemand(t *testing.T) {
	src := &stubSource{axes: [6]int32{300, 0, 0, 0, 0, 0}, fullScale: 1000}
	c := NewController(src, Config{AxisMap: [5]int{0, 1, 2, 3, 4}})

	var demands [5]float64
	c.Poll(0.01, &demands)
	if demands[ChanThrottle] != 0.3 {
		t.Errorf("throttle = %v, want 0.3", demands[ChanThrottle])
	}

	src.axes[0] = -700
	c.Poll(0.01, &demands)
	if demands[ChanThrottle] != -0.7 {
		t.Errorf("throttle = %v, want -0.7 (no integration in direct mode)", demands[ChanThrottle])
	}
}

func TestReadChannelPollsOnChannelZeroOnly(t *testing.T) {
	src := &stubSource{axes: [6]int32{100, 200, 300, 400, 500, 0}, fullScale: 1000}
	c := NewController(src, Config{AxisMap: [5]int{0, 1, 2, 3, 4}})

	// Querying all five channels once per cycle costs one device poll.
	_ = c.ReadChannel(0)
	for ch := 1; ch < NumChannels; ch++ {
		_ = c.ReadChannel(ch)
	}
	if src.polls != 1 {
		t.Errorf("device polled %d times for one cycle, want 1", src.polls)
	}

	if got := c.ReadChannel(ChanRoll); got != 0.2 {
		t.Errorf("roll = %v, want 0.2", got)
	}
}

func TestThrottleSentinelBeforeFirstPoll(t *testing.T) {
	src := &stubSource{fullScale: 1000}
	c := NewController(src, Config{AxisMap: [5]int{0, 1, 2, 3, 4}, SpringyThrottle: true})
	// Channel 1..4 reads before any poll see zeroed demands; the
	// throttle state itself starts at the -1 sentinel.
	if got := c.ReadChannel(ChanRoll); got != 0 {
		t.Errorf("roll before first poll = %v, want 0", got)
	}
	if c.throttle != -1 {
		t.Errorf("initial throttle state = %v, want -1", c.throttle)
	}
}

func TestPollSourceErrorKeepsPreviousSample(t *testing.T) {
	src := &stubSource{axes: [6]int32{400, 0, 0, 0, 0, 0}, fullScale: 1000}
	c := NewController(src, Config{AxisMap: [5]int{0, 1, 2, 3, 4}})

	var demands [5]float64
	c.Poll(0.01, &demands)
	if demands[ChanThrottle] != 0.4 {
		t.Fatalf("throttle = %v, want 0.4", demands[ChanThrottle])
	}

	src.err = errStub
	src.axes[0] = 999 // must not be observed
	c.Poll(0.01, &demands)
	if demands[ChanThrottle] != 0.4 {
		t.Errorf("throttle = %v after source error, want stale 0.4", demands[ChanThrottle])
	}
}

var errStub = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "device timeout" }

func TestReadChannelUsesElapsedTime(t *testing.T) {
	src := &stubSource{axes: [6]int32{1000, 0, 0, 0, 0, 0}, fullScale: 1000}
	c := NewController(src, Config{
		AxisMap:         [5]int{0, 1, 2, 3, 4},
		SpringyThrottle: true,
		ThrottleRate:    1.0,
	})

	fake := time.Unix(1000, 0)
	c.now = func() time.Time { return fake }

	_ = c.ReadChannel(0) // first poll: nominal interval
	start := c.throttle

	fake = fake.Add(250 * time.Millisecond)
	got := c.ReadChannel(0)
	want := start + 1.0*0.25 // full displacement * rate * dt
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("throttle = %v after 250ms, want %v", got, want)
	}
}
