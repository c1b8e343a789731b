// Copyright (c) 2026 Si6gma
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/si6gma/laserturret/internal/app"
	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/framing"
	"github.com/si6gma/laserturret/internal/imu"
	"github.com/si6gma/laserturret/internal/servo"
	"github.com/si6gma/laserturret/internal/stabilizer"
)

func main() {
	configPath := flag.String("config", "./gimbal_config.txt", "path to configuration file")
	sim := flag.Bool("sim", false, "run with simulated IMU and detections (no hardware)")
	flag.Parse()

	log.Println("starting laserturret gimbal controller")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sensor, err := buildSensor(cfg, *sim)
	if err != nil {
		log.Fatalf("imu setup: %v", err)
	}

	driver, err := servo.NewDriver(buildActuator(cfg, *sim),
		servo.Range{Min: cfg.PitchMin, Max: cfg.PitchMax},
		servo.Range{Min: cfg.YawMin, Max: cfg.YawMax})
	if err != nil {
		log.Fatalf("servo setup: %v", err)
	}
	defer driver.Close()

	stab := stabilizer.New(stabilizer.Config{
		Gain:        cfg.StabilizerGain,
		Smoothing:   cfg.StabilizerSmoothing,
		FilterAlpha: cfg.FilterAlpha,
		Track: stabilizer.PIDConfig{
			Kp:            cfg.TrackKp,
			Ki:            cfg.TrackKi,
			Kd:            cfg.TrackKd,
			IntegralLimit: cfg.TrackIntegralLimit,
			OutputLimit:   cfg.TrackOutputLimit,
		},
	})

	framer := framing.New(framing.Config{
		Smoothing:      cfg.FramerSmoothing,
		Composition:    framing.Composition(cfg.Composition),
		HeadroomRatio:  cfg.HeadroomRatio,
		LostFrameLimit: cfg.LostFrameLimit,
	})

	// Detections come over the wire from the vision process; the
	// simulated source stands in when running without one.
	detections := framing.NewSimSource(640, 480)

	ctrl, err := app.NewController(cfg, sensor, stab, framer, driver, detections)
	if err != nil {
		log.Fatalf("controller setup: %v", err)
	}

	if err := sensor.Start(); err != nil {
		log.Fatalf("imu start: %v", err)
	}
	defer sensor.Stop()

	if err := ctrl.Start(); err != nil {
		log.Fatalf("controller start: %v", err)
	}
	defer ctrl.Stop()

	stop := make(chan struct{})
	go func() {
		if err := app.RunTelemetry(cfg, ctrl, sensor, stop); err != nil {
			log.Printf("telemetry: %v", err)
		}
	}()

	go func() {
		if err := app.RunWeb(cfg, ctrl); err != nil {
			log.Fatalf("web server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down")
	close(stop)
}

// buildSensor prefers the real IMU but never fails over to nothing:
// absent or broken hardware degrades to the simulated source.
func buildSensor(cfg *config.Config, sim bool) (*imu.Sensor, error) {
	var source imu.Source
	calibrate := false
	if sim || cfg.UseSimulatedIMU {
		log.Println("using simulated IMU source")
		source = imu.NewSimSource(cfg.IMUSampleRate)
	} else if mpu, err := imu.NewMPUSource(imu.MPUOptions{
		SPIDevice:  cfg.IMUSPIDevice,
		CSPin:      cfg.IMUCSPin,
		AccelRange: cfg.IMUAccelRange,
		GyroRange:  cfg.IMUGyroRange,
	}); err != nil {
		log.Printf("imu hardware unavailable, falling back to simulated source: %v", err)
		source = imu.NewSimSource(cfg.IMUSampleRate)
	} else {
		source = mpu
		calibrate = true
	}

	return imu.NewSensor(source, imu.Options{
		SampleRate:       cfg.IMUSampleRate,
		AccelAlpha:       cfg.IMUAccelAlpha,
		GyroAlpha:        cfg.IMUGyroAlpha,
		CalibSamples:     cfg.IMUCalibSamples,
		CalibrateOnStart: calibrate,
	})
}

// buildActuator mirrors buildSensor: missing servo hardware degrades
// to the no-op actuator so the control loop still runs.
func buildActuator(cfg *config.Config, sim bool) servo.Actuator {
	if sim {
		log.Println("using no-op servo actuator")
		return servo.Nop{}
	}

	var (
		act servo.Actuator
		err error
	)
	if cfg.ServoPWMAddr != 0 {
		act, err = servo.NewPCA9685Actuator(cfg.ServoPWMAddr, cfg.PitchChannel, cfg.YawChannel)
	} else {
		act, err = servo.NewSerialActuator(cfg.ServoSerialPort, cfg.ServoSerialBaud)
	}
	if err != nil {
		log.Printf("servo hardware unavailable, falling back to no-op actuator: %v", err)
		return servo.Nop{}
	}
	return act
}
