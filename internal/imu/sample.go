package imu

import "time"

// Sample is a single filtered IMU reading. Samples are immutable once
// published; each new reading supersedes the previous one.
type Sample struct {
	Timestamp   time.Time  `json:"timestamp"`
	Accel       [3]float64 `json:"accel"`       // g
	Gyro        [3]float64 `json:"gyro"`        // rad/s
	Temperature float64    `json:"temperature"` // °C
	Valid       bool       `json:"valid"`
}

// RawReading is one unfiltered reading from a Source.
type RawReading struct {
	Accel       [3]float64 // g
	Gyro        [3]float64 // rad/s
	Temperature float64    // °C
}

// Source provides raw accelerometer/gyroscope readings. Implementations
// exist for the MPU-9250 over SPI and for a deterministic simulated
// sensor used when hardware is absent.
type Source interface {
	ReadRaw() (RawReading, error)
}
