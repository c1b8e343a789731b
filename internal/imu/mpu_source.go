// Copyright (c) 2026 Si6gma
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"log"
	"math"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// LSB scale factors per configured full-scale range.
var (
	accelLSBPerG   = [4]float64{16384, 8192, 4096, 2048}
	gyroLSBPerDegS = [4]float64{131, 65.5, 32.8, 16.4}
)

type mpuSource struct {
	imu        *mpu9250.MPU9250
	accelScale float64 // LSB per g
	gyroScale  float64 // LSB per °/s
}

// MPUOptions selects the SPI device and sensor ranges for the MPU-9250.
type MPUOptions struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g .. 3=±16g
	GyroRange  byte // 0=±250°/s .. 3=±2000°/s
}

// NewMPUSource initializes the MPU-9250 over SPI and returns a Source
// producing readings in g and rad/s.
func NewMPUSource(opts MPUOptions) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("imu: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("imu: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("imu: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("imu: initialization: %w", err)
	}

	if opts.AccelRange > 3 || opts.GyroRange > 3 {
		return nil, fmt.Errorf("imu: range settings must be 0-3, got accel=%d gyro=%d",
			opts.AccelRange, opts.GyroRange)
	}
	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("imu: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, fmt.Errorf("imu: set gyro range: %w", err)
	}
	log.Printf("imu: MPU-9250 on %s, accel ±%dg, gyro ±%d°/s",
		opts.SPIDevice,
		[]int{2, 4, 8, 16}[opts.AccelRange],
		[]int{250, 500, 1000, 2000}[opts.GyroRange])

	return &mpuSource{
		imu:        dev,
		accelScale: accelLSBPerG[opts.AccelRange],
		gyroScale:  gyroLSBPerDegS[opts.GyroRange],
	}, nil
}

// ReadRaw reads accelerometer and gyroscope registers and converts to
// physical units.
func (s *mpuSource) ReadRaw() (RawReading, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return RawReading{}, fmt.Errorf("imu: accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return RawReading{}, fmt.Errorf("imu: accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return RawReading{}, fmt.Errorf("imu: accel Z: %w", err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return RawReading{}, fmt.Errorf("imu: gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return RawReading{}, fmt.Errorf("imu: gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return RawReading{}, fmt.Errorf("imu: gyro Z: %w", err)
	}

	degToRad := math.Pi / 180
	return RawReading{
		Accel: [3]float64{
			float64(ax) / s.accelScale,
			float64(ay) / s.accelScale,
			float64(az) / s.accelScale,
		},
		Gyro: [3]float64{
			float64(gx) / s.gyroScale * degToRad,
			float64(gy) / s.gyroScale * degToRad,
			float64(gz) / s.gyroScale * degToRad,
		},
	}, nil
}
