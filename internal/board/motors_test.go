package board

import (
	"testing"
	"time"
)

type fakePulseOutput struct {
	pulses map[int]time.Duration
}

func (f *fakePulseOutput) WritePulse(index int, pulse time.Duration) error {
	if f.pulses == nil {
		f.pulses = make(map[int]time.Duration)
	}
	f.pulses[index] = pulse
	return nil
}

func TestWriteMotorScalesLinearly(t *testing.T) {
	out := &fakePulseOutput{}
	bank := NewMotorBank(out, 1000*time.Microsecond, 2000*time.Microsecond)

	tests := []struct {
		name  string
		value float64
		want  time.Duration
	}{
		{"idle", 0, 1000 * time.Microsecond},
		{"full", 1, 2000 * time.Microsecond},
		{"half", 0.5, 1500 * time.Microsecond},
		{"quarter", 0.25, 1250 * time.Microsecond},
		// Out-of-range commands pass through unvalidated.
		{"overdriven", 1.5, 2500 * time.Microsecond},
		{"negative", -0.5, 500 * time.Microsecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bank.WriteMotor(0, tc.value)
			if got := out.pulses[0]; got != tc.want {
				t.Errorf("WriteMotor(0, %v) pulse = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestWriteMotorPerIndex(t *testing.T) {
	out := &fakePulseOutput{}
	bank := NewMotorBank(out, 1000*time.Microsecond, 2000*time.Microsecond)

	for i := 0; i < 4; i++ {
		bank.WriteMotor(i, float64(i)*0.25)
	}
	for i := 0; i < 4; i++ {
		want := time.Duration(1000+250*i) * time.Microsecond
		if got := out.pulses[i]; got != want {
			t.Errorf("motor %d pulse = %v, want %v", i, got, want)
		}
	}
}

func TestPulseMatchesWriteMotor(t *testing.T) {
	out := &fakePulseOutput{}
	bank := NewMotorBank(out, 1100*time.Microsecond, 1900*time.Microsecond)

	for _, v := range []float64{0, 0.33, 0.66, 1} {
		bank.WriteMotor(2, v)
		if got := out.pulses[2]; got != bank.Pulse(v) {
			t.Errorf("Pulse(%v) = %v, written %v", v, bank.Pulse(v), got)
		}
	}
}
