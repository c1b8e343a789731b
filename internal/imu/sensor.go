package imu

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/si6gma/laserturret/internal/orientation"
)

// Options configures a Sensor.
type Options struct {
	SampleRate       int     // Hz
	AccelAlpha       float64 // low-pass coefficient for accelerometer
	GyroAlpha        float64 // low-pass coefficient for gyroscope
	CalibSamples     int     // stationary samples averaged for gyro bias
	CalibrateOnStart bool    // skip for simulated sources
}

// Sensor samples a Source on a background goroutine at a fixed rate,
// applies gyro bias correction and per-axis exponential low-pass
// filtering, and publishes the latest Sample behind a lock. Only the
// newest sample is kept; readers never see a partially written one.
type Sensor struct {
	source Source
	opts   Options
	period time.Duration

	mu     sync.RWMutex
	latest Sample

	// Owned by the sampling goroutine after Start.
	gyroOffset    [3]float64
	filteredAccel [3]float64
	filteredGyro  [3]float64

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewSensor creates a sensor around the given source. The source is
// selected once at construction; there is no runtime hardware probing.
func NewSensor(source Source, opts Options) (*Sensor, error) {
	if source == nil {
		return nil, fmt.Errorf("imu: source must not be nil")
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("imu: sample rate must be positive, got %d", opts.SampleRate)
	}
	if opts.CalibSamples <= 0 {
		opts.CalibSamples = 500
	}
	return &Sensor{
		source: source,
		opts:   opts,
		period: time.Second / time.Duration(opts.SampleRate),
	}, nil
}

// Start calibrates the gyro if configured and launches the sampling
// goroutine. Calling Start on a running sensor is a no-op.
func (s *Sensor) Start() error {
	if s.running {
		return nil
	}

	if s.opts.CalibrateOnStart {
		log.Println("imu: calibrating gyroscope, keep sensor still")
		cal, err := CalibrateGyro(s.source, s.opts.CalibSamples)
		if err != nil {
			return fmt.Errorf("imu: gyro calibration: %w", err)
		}
		s.gyroOffset = cal.Bias
		log.Printf("imu: gyro bias [%.5f %.5f %.5f] rad/s (confidence %.2f)",
			cal.Bias[0], cal.Bias[1], cal.Bias[2], cal.Confidence)
	}

	s.stopCh = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	go s.sampleLoop()
	log.Printf("imu: sampling started at %d Hz", s.opts.SampleRate)
	return nil
}

// Stop signals the sampling goroutine and waits for it to exit. The
// stop flag is observed within one sampling period.
func (s *Sensor) Stop() {
	if !s.running {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.running = false
	log.Println("imu: sampling stopped")
}

// sampleLoop runs until Stop. If a cycle overruns the period the next
// cycle starts immediately; samples are never queued.
func (s *Sensor) sampleLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		loopStart := time.Now()

		raw, err := s.source.ReadRaw()
		if err != nil {
			log.Printf("imu: read error: %v", err)
			s.publish(Sample{Timestamp: time.Now()}) // invalid sample
		} else {
			var gyro [3]float64
			for i := 0; i < 3; i++ {
				gyro[i] = raw.Gyro[i] - s.gyroOffset[i]
			}

			for i := 0; i < 3; i++ {
				s.filteredAccel[i] = s.opts.AccelAlpha*raw.Accel[i] + (1-s.opts.AccelAlpha)*s.filteredAccel[i]
				s.filteredGyro[i] = s.opts.GyroAlpha*gyro[i] + (1-s.opts.GyroAlpha)*s.filteredGyro[i]
			}

			s.publish(Sample{
				Timestamp:   time.Now(),
				Accel:       s.filteredAccel,
				Gyro:        s.filteredGyro,
				Temperature: raw.Temperature,
				Valid:       true,
			})
		}

		// Sleep out the remainder of the period, waking early on Stop.
		if sleep := s.period - time.Since(loopStart); sleep > 0 {
			select {
			case <-s.stopCh:
				return
			case <-time.After(sleep):
			}
		}
	}
}

func (s *Sensor) publish(sample Sample) {
	s.mu.Lock()
	s.latest = sample
	s.mu.Unlock()
}

// GetReading returns the latest sample. Safe for concurrent use.
func (s *Sensor) GetReading() Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// GetAngles estimates roll and pitch in degrees from the latest
// accelerometer reading. Only valid while the sensor is not
// accelerating. Yaw cannot be determined from the accelerometer and is
// returned as 0, as is everything when no valid sample exists yet.
func (s *Sensor) GetAngles() (roll, pitch, yaw float64) {
	sample := s.GetReading()
	if !sample.Valid {
		return 0, 0, 0
	}
	pose := orientation.ComputePoseFromAccel(sample.Accel[0], sample.Accel[1], sample.Accel[2])
	return pose.Roll, pose.Pitch, pose.Yaw
}

// SimulateMotion overwrites the latest sample with a synthetic level
// reading rotating at the given rates. Test hook; rates in rad/s.
func (s *Sensor) SimulateMotion(pitchRate, yawRate float64) {
	s.publish(Sample{
		Timestamp: time.Now(),
		Accel:     [3]float64{0, 0, 1},
		Gyro:      [3]float64{0, pitchRate, yawRate},
		Valid:     true,
	})
}
