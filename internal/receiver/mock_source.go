package receiver

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a bench raw source that sweeps the sticks smoothly,
// for exercising the pipeline without a receiver attached.
func NewMockSource() RawSource {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Poll(axes *[6]int32) error {
	elapsed := time.Since(m.start).Seconds()
	for i := range axes {
		phase := elapsed * (0.3 + 0.1*float64(i))
		axes[i] = int32(32767 * math.Sin(phase))
	}
	return nil
}

func (m *mockSource) Baseline() int32 {
	return 0
}

func (m *mockSource) FullScale() int32 {
	return 32767
}
