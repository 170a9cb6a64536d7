package orientation

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputePoseFromAccel(t *testing.T) {
	tests := []struct {
		name       string
		ax, ay, az float64
		roll       float64
		pitch      float64
	}{
		{"level", 0, 0, 1, 0, 0},
		{"rolled right 90", 0, 1, 0, 90, 0},
		{"pitched up 90", -1, 0, 0, 0, 90},
		{"rolled 45", 0, 1, 1, 45, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputePoseFromAccel(tt.ax, tt.ay, tt.az)
			if !almostEqual(p.Roll, tt.roll, 1e-9) {
				t.Errorf("roll = %v, want %v", p.Roll, tt.roll)
			}
			if !almostEqual(p.Pitch, tt.pitch, 1e-9) {
				t.Errorf("pitch = %v, want %v", p.Pitch, tt.pitch)
			}
			if p.Yaw != 0 {
				t.Errorf("yaw = %v, want 0", p.Yaw)
			}
		})
	}
}

func TestPoseFromQuaternionIdentity(t *testing.T) {
	p := PoseFromQuaternion([4]float64{1, 0, 0, 0})
	if p.Roll != 0 || p.Pitch != 0 || p.Yaw != 0 {
		t.Errorf("identity quaternion gave %+v, want zero pose", p)
	}
}

func TestBenchSourceStaysInBounds(t *testing.T) {
	s := &benchSource{start: time.Now().Add(-37 * time.Second)}
	for i := 0; i < 50; i++ {
		p, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if math.Abs(p.Roll) > 25 || math.Abs(p.Pitch) > 10 {
			t.Fatalf("pose out of bounds: %+v", p)
		}
		if p.Yaw < -180 || p.Yaw >= 180 {
			t.Fatalf("yaw %v outside [-180, 180)", p.Yaw)
		}
	}
}

func TestPoseFromQuaternionYaw90(t *testing.T) {
	s := math.Sin(math.Pi / 4)
	p := PoseFromQuaternion([4]float64{math.Cos(math.Pi / 4), 0, 0, s})
	if !almostEqual(p.Yaw, 90, 1e-9) {
		t.Errorf("yaw = %v, want 90", p.Yaw)
	}
}
