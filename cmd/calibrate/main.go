// Copyright (c) 2026 Si6gma
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Stationary gyro bias estimation. Keep the turret completely still
// while this runs; the per-axis standard deviation in the report shows
// whether it was. Optionally writes the result as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/imu"
)

func main() {
	configPath := flag.String("config", "./gimbal_config.txt", "path to configuration file")
	samples := flag.Int("samples", 0, "override IMU_CALIB_SAMPLES")
	out := flag.String("out", "", "write calibration JSON to this file")
	sim := flag.Bool("sim", false, "use the simulated IMU source")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	n := cfg.IMUCalibSamples
	if *samples > 0 {
		n = *samples
	}

	var source imu.Source
	if *sim || cfg.UseSimulatedIMU {
		source = imu.NewSimSource(cfg.IMUSampleRate)
	} else if mpu, err := imu.NewMPUSource(imu.MPUOptions{
		SPIDevice:  cfg.IMUSPIDevice,
		CSPin:      cfg.IMUCSPin,
		AccelRange: cfg.IMUAccelRange,
		GyroRange:  cfg.IMUGyroRange,
	}); err != nil {
		log.Printf("imu hardware unavailable, calibrating the simulated source: %v", err)
		source = imu.NewSimSource(cfg.IMUSampleRate)
	} else {
		source = mpu
	}

	log.Printf("collecting %d stationary samples, keep the turret still...", n)
	cal, err := imu.CalibrateGyro(source, n)
	if err != nil {
		log.Fatalf("calibration failed: %v", err)
	}

	fmt.Println("gyro calibration result")
	fmt.Printf("  bias   (rad/s): X=%+.6f Y=%+.6f Z=%+.6f\n", cal.Bias[0], cal.Bias[1], cal.Bias[2])
	fmt.Printf("  stddev (rad/s): X=%.6f Y=%.6f Z=%.6f\n", cal.StdDev[0], cal.StdDev[1], cal.StdDev[2])
	fmt.Printf("  confidence: %.3f (samples: %d)\n", cal.Confidence, cal.Samples)
	if cal.Confidence < 0.5 {
		fmt.Println("  low confidence: the sensor was probably moving, re-run while still")
	}

	if *out != "" {
		payload, err := json.MarshalIndent(cal, "", "  ")
		if err != nil {
			log.Fatalf("marshal calibration: %v", err)
		}
		if err := os.WriteFile(*out, payload, 0o644); err != nil {
			log.Fatalf("write %s: %v", *out, err)
		}
		log.Printf("calibration written to %s", *out)
	}
}
