package imu

import (
	"math"
	"sync"
)

// simSource is a deterministic stand-in for real hardware: a level,
// gently swaying sensor. Missing hardware degrades to this source
// rather than failing; it is a first-class fallback, not an error.
type simSource struct {
	mu   sync.Mutex
	step int
	rate float64 // nominal sample rate, Hz
}

// NewSimSource creates a simulated sensor. Output depends only on the
// number of readings taken, so runs are reproducible.
func NewSimSource(sampleRate int) Source {
	if sampleRate <= 0 {
		sampleRate = 100
	}
	return &simSource{rate: float64(sampleRate)}
}

func (s *simSource) ReadRaw() (RawReading, error) {
	s.mu.Lock()
	t := float64(s.step) / s.rate
	s.step++
	s.mu.Unlock()

	// Small oscillation around level, 1 g on the Z axis.
	return RawReading{
		Accel: [3]float64{
			0.02 * math.Sin(2*math.Pi*0.5*t),
			0.02 * math.Cos(2*math.Pi*0.3*t),
			1.0,
		},
		Gyro: [3]float64{
			0.01 * math.Sin(2*math.Pi*0.5*t),
			0.03 * math.Sin(2*math.Pi*0.7*t),
			0.02 * math.Cos(2*math.Pi*0.4*t),
		},
		Temperature: 25.0,
	}, nil
}
