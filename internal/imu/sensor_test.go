package imu

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource returns a fixed reading, optionally failing.
type stubSource struct {
	mu      sync.Mutex
	reading RawReading
	err     error
	reads   int
}

func (s *stubSource) ReadRaw() (RawReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return RawReading{}, s.err
	}
	return s.reading, nil
}

func (s *stubSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func levelReading() RawReading {
	return RawReading{
		Accel:       [3]float64{0, 0, 1},
		Gyro:        [3]float64{0, 0, 0},
		Temperature: 25,
	}
}

func TestNewSensor_Validation(t *testing.T) {
	_, err := NewSensor(nil, Options{SampleRate: 100})
	assert.Error(t, err)

	_, err = NewSensor(&stubSource{}, Options{SampleRate: 0})
	assert.Error(t, err)
}

func TestSensor_StartStop(t *testing.T) {
	src := &stubSource{reading: levelReading()}
	s, err := NewSensor(src, Options{SampleRate: 200, AccelAlpha: 0.2, GyroAlpha: 0.3})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Greater(t, src.readCount(), 1, "sampling loop must have run")

	// Stop on a stopped sensor is a no-op.
	s.Stop()

	countAfterStop := src.readCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, countAfterStop, src.readCount(), "no reads after Stop")
}

func TestSensor_PublishesFilteredSamples(t *testing.T) {
	src := &stubSource{reading: levelReading()}
	s, err := NewSensor(src, Options{SampleRate: 500, AccelAlpha: 0.2, GyroAlpha: 0.3})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()
	time.Sleep(100 * time.Millisecond)

	sample := s.GetReading()
	require.True(t, sample.Valid)
	// The low-pass output converges toward the constant input.
	assert.InDelta(t, 1.0, sample.Accel[2], 0.05)
	assert.InDelta(t, 0.0, sample.Gyro[0], 1e-9)
	assert.Equal(t, 25.0, sample.Temperature)
	assert.False(t, sample.Timestamp.IsZero())
}

func TestSensor_ConcurrentReads(t *testing.T) {
	src := &stubSource{reading: levelReading()}
	s, err := NewSensor(src, Options{SampleRate: 500, AccelAlpha: 0.2, GyroAlpha: 0.3})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	// Hammer GetReading from several goroutines while sampling runs.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				sample := s.GetReading()
				if sample.Valid {
					// A published sample is never half-written.
					assert.Equal(t, 25.0, sample.Temperature)
				}
			}
		}()
	}
	wg.Wait()
}

func TestSensor_ReadErrorPublishesInvalid(t *testing.T) {
	src := &stubSource{err: errors.New("bus fault")}
	s, err := NewSensor(src, Options{SampleRate: 200})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()
	time.Sleep(30 * time.Millisecond)

	sample := s.GetReading()
	assert.False(t, sample.Valid)
	assert.False(t, sample.Timestamp.IsZero())
}

func TestSensor_GetAngles(t *testing.T) {
	src := &stubSource{reading: levelReading()}
	s, err := NewSensor(src, Options{SampleRate: 100})
	require.NoError(t, err)

	// No sample yet: everything reads zero.
	roll, pitch, yaw := s.GetAngles()
	assert.Zero(t, roll)
	assert.Zero(t, pitch)
	assert.Zero(t, yaw)

	s.SimulateMotion(0, 0)
	roll, pitch, yaw = s.GetAngles()
	assert.InDelta(t, 0.0, roll, 1e-9)
	assert.InDelta(t, 0.0, pitch, 1e-9)
	assert.Zero(t, yaw, "yaw has no accelerometer reference")
}

func TestSensor_SimulateMotion(t *testing.T) {
	src := &stubSource{reading: levelReading()}
	s, err := NewSensor(src, Options{SampleRate: 100})
	require.NoError(t, err)

	s.SimulateMotion(0.5, -0.25)

	sample := s.GetReading()
	require.True(t, sample.Valid)
	assert.Equal(t, 0.5, sample.Gyro[1])
	assert.Equal(t, -0.25, sample.Gyro[2])
	assert.Equal(t, [3]float64{0, 0, 1}, sample.Accel)
}

func TestCalibrateGyro_StationaryBias(t *testing.T) {
	src := &stubSource{reading: RawReading{
		Accel: [3]float64{0, 0, 1},
		Gyro:  [3]float64{0.01, -0.02, 0.005},
	}}

	cal, err := CalibrateGyro(src, 50)
	require.NoError(t, err)

	assert.InDelta(t, 0.01, cal.Bias[0], 1e-9)
	assert.InDelta(t, -0.02, cal.Bias[1], 1e-9)
	assert.InDelta(t, 0.005, cal.Bias[2], 1e-9)
	assert.Equal(t, 50, cal.Samples)
	// A perfectly still source has zero jitter and full confidence.
	assert.InDelta(t, 1.0, cal.Confidence, 1e-9)
}

func TestCalibrateGyro_InvalidCount(t *testing.T) {
	_, err := CalibrateGyro(&stubSource{}, 0)
	assert.Error(t, err)
}

func TestCalibrateGyro_ReadError(t *testing.T) {
	_, err := CalibrateGyro(&stubSource{err: errors.New("bus fault")}, 10)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bus fault")
}

func TestSensor_BiasSubtraction(t *testing.T) {
	// Source with a constant gyro offset; calibration on start should
	// remove it from published samples.
	src := &stubSource{reading: RawReading{
		Accel: [3]float64{0, 0, 1},
		Gyro:  [3]float64{0.1, 0.1, 0.1},
	}}
	s, err := NewSensor(src, Options{
		SampleRate:       500,
		AccelAlpha:       0.5,
		GyroAlpha:        0.5,
		CalibSamples:     20,
		CalibrateOnStart: true,
	})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()
	time.Sleep(50 * time.Millisecond)

	sample := s.GetReading()
	require.True(t, sample.Valid)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, sample.Gyro[i], 1e-9, "axis %d", i)
	}
}
