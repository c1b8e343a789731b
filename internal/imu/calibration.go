package imu

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// GyroCalibration is the result of a stationary gyro bias estimation.
type GyroCalibration struct {
	Bias       [3]float64 `json:"bias"`   // rad/s
	StdDev     [3]float64 `json:"stddev"` // rad/s
	Confidence float64    `json:"confidence"`
	Samples    int        `json:"samples"`
}

// CalibrateGyro averages n stationary readings to estimate the gyro
// bias. The sensor must be motionless for the duration; the per-axis
// standard deviation is reported so callers can judge whether it was.
func CalibrateGyro(source Source, n int) (GyroCalibration, error) {
	if n <= 0 {
		return GyroCalibration{}, fmt.Errorf("imu: calibration sample count must be positive, got %d", n)
	}

	axes := [3][]float64{
		make([]float64, 0, n),
		make([]float64, 0, n),
		make([]float64, 0, n),
	}

	for i := 0; i < n; i++ {
		raw, err := source.ReadRaw()
		if err != nil {
			return GyroCalibration{}, fmt.Errorf("imu: calibration read %d/%d: %w", i+1, n, err)
		}
		for a := 0; a < 3; a++ {
			axes[a] = append(axes[a], raw.Gyro[a])
		}
		time.Sleep(time.Millisecond)
	}

	cal := GyroCalibration{Samples: n}
	var avgStdDev float64
	for a := 0; a < 3; a++ {
		cal.Bias[a] = stat.Mean(axes[a], nil)
		cal.StdDev[a] = stat.StdDev(axes[a], nil)
		avgStdDev += cal.StdDev[a] / 3
	}
	// Jitter during calibration lowers confidence toward 0.
	cal.Confidence = 1 / (1 + 100*avgStdDev)
	return cal, nil
}
