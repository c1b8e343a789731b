// Copyright (c) 2026 Si6gma
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/framing"
	"github.com/si6gma/laserturret/internal/imu"
	"github.com/si6gma/laserturret/internal/servo"
	"github.com/si6gma/laserturret/internal/stabilizer"
)

// Status is a snapshot of the controller state for the front-ends.
type Status struct {
	Pitch           float64 `json:"pitch"`
	Yaw             float64 `json:"yaw"`
	Manual          bool    `json:"manual"`
	Stabilization   bool    `json:"stabilization"`
	Tracking        bool    `json:"tracking"`
	SubjectDetected bool    `json:"subject_detected"`
	LockedOn        bool    `json:"locked_on"`
	Confidence      float64 `json:"confidence"`
}

// Controller runs the gimbal control loop: it reads detections and IMU
// state, computes target angles, blends in shake compensation, applies
// jerk limiting and drives the servos. It is constructed explicitly
// with its collaborators and has a start/stop lifecycle; front-ends
// reach it only through its methods.
type Controller struct {
	cfg        *config.Config
	sensor     *imu.Sensor
	stab       *stabilizer.Stabilizer
	framer     *framing.AutoFramer
	driver     *servo.Driver
	detections framing.DetectionSource

	mu           sync.RWMutex
	manualMode   bool
	manualPitch  float64
	manualYaw    float64
	stabilizeOn  bool
	trackingOn   bool
	status       Status
	trackedSince time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewController wires the control loop. All collaborators are required.
func NewController(cfg *config.Config, sensor *imu.Sensor, stab *stabilizer.Stabilizer,
	framer *framing.AutoFramer, driver *servo.Driver, detections framing.DetectionSource) (*Controller, error) {
	if cfg == nil || sensor == nil || stab == nil || framer == nil || driver == nil || detections == nil {
		return nil, fmt.Errorf("controller: all collaborators must be non-nil")
	}
	return &Controller{
		cfg:         cfg,
		sensor:      sensor,
		stab:        stab,
		framer:      framer,
		driver:      driver,
		detections:  detections,
		manualPitch: 90,
		manualYaw:   90,
		stabilizeOn: true,
		trackingOn:  true,
	}, nil
}

// Start launches the control loop goroutine.
func (c *Controller) Start() error {
	if c.running {
		return nil
	}
	c.stopCh = make(chan struct{})
	c.running = true
	c.wg.Add(1)
	go c.controlLoop()
	log.Printf("controller: loop started at %d Hz", c.cfg.ControlRate)
	return nil
}

// Stop signals the loop and waits for it to exit.
func (c *Controller) Stop() {
	if !c.running {
		return
	}
	close(c.stopCh)
	c.wg.Wait()
	c.running = false
	log.Println("controller: loop stopped")
}

func (c *Controller) controlLoop() {
	defer c.wg.Done()

	period := time.Second / time.Duration(c.cfg.ControlRate)
	lastTime := time.Now()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		loopStart := time.Now()
		dt := loopStart.Sub(lastTime).Seconds()
		lastTime = loopStart

		c.step(dt)

		if sleep := period - time.Since(loopStart); sleep > 0 {
			select {
			case <-c.stopCh:
				return
			case <-time.After(sleep):
			}
		}
	}
}

// step executes one control cycle.
func (c *Controller) step(dt float64) {
	subjects, frameW, frameH, err := c.detections.Detect()
	if err != nil {
		log.Printf("controller: detection error: %v", err)
		subjects = nil
	}
	frame := c.framer.ProcessFrame(subjects, frameW, frameH)

	c.mu.RLock()
	manual := c.manualMode
	manualPitch, manualYaw := c.manualPitch, c.manualYaw
	stabilizeOn := c.stabilizeOn
	trackingOn := c.trackingOn
	c.mu.RUnlock()

	// Target selection: manual beats tracking beats centered. The
	// framer's angles are followed whenever tracking is on: while a
	// lost subject is inside the hold window they carry the last known
	// target, and past it the centered default, so brief dropouts do
	// not start a recenter.
	var targetPitch, targetYaw float64
	trackingTarget := false
	switch {
	case manual:
		targetPitch, targetYaw = manualPitch, manualYaw
	case trackingOn:
		targetPitch, targetYaw = frame.OptimalPitch, frame.OptimalYaw
		trackingTarget = frame.Detected
	default:
		targetPitch, targetYaw = 90, 90
	}

	// Shake compensation; invalid samples contribute nothing.
	var stabPitch, stabYaw float64
	sample := c.sensor.GetReading()
	if stabilizeOn && sample.Valid {
		stabPitch, stabYaw = c.stab.CalculateCompensation(sample.Gyro, sample.Accel, dt)
	}

	weight := 0.0 // manual and centered targets take the full compensation
	if trackingTarget {
		weight = c.cfg.TrackingWeight
	}
	pitch, yaw := c.stab.BlendTrackingStabilization(targetPitch, targetYaw, stabPitch, stabYaw, weight)

	curPitch, curYaw := c.driver.GetPosition()
	pitch, yaw = c.stab.ApplyJerkLimiting(pitch, yaw, curPitch, curYaw, dt, c.cfg.MaxJerk)

	if err := c.driver.SetPosition(pitch, yaw); err != nil {
		log.Printf("controller: servo error: %v", err)
	}

	c.updateStatus(frame, manual, stabilizeOn, trackingOn)
}

// updateStatus refreshes the snapshot and the lock-on timer. A subject
// continuously tracked for the configured hold time reads as locked.
func (c *Controller) updateStatus(frame framing.FramingData, manual, stabilizeOn, trackingOn bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame.Detected {
		if c.trackedSince.IsZero() {
			c.trackedSince = time.Now()
		}
	} else {
		c.trackedSince = time.Time{}
	}
	lockedOn := !c.trackedSince.IsZero() &&
		time.Since(c.trackedSince).Seconds() >= c.cfg.LockOnSeconds

	pitch, yaw := c.driver.GetPosition()
	c.status = Status{
		Pitch:           pitch,
		Yaw:             yaw,
		Manual:          manual,
		Stabilization:   stabilizeOn,
		Tracking:        trackingOn,
		SubjectDetected: frame.Detected,
		LockedOn:        lockedOn,
		Confidence:      frame.Confidence,
	}
}

// Status returns the latest control snapshot. Safe for concurrent use.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetManualPosition switches to manual mode and records the target.
func (c *Controller) SetManualPosition(pitch, yaw float64) {
	c.mu.Lock()
	c.manualMode = true
	c.manualPitch = pitch
	c.manualYaw = yaw
	c.mu.Unlock()
}

// DisableManual returns control to tracking.
func (c *Controller) DisableManual() {
	c.mu.Lock()
	c.manualMode = false
	c.mu.Unlock()
}

// ToggleStabilization flips shake compensation and reports the new state.
func (c *Controller) ToggleStabilization() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stabilizeOn = !c.stabilizeOn
	return c.stabilizeOn
}

// ToggleTracking flips subject tracking and reports the new state.
func (c *Controller) ToggleTracking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackingOn = !c.trackingOn
	return c.trackingOn
}

// Center leaves manual mode and recenters both axes.
func (c *Controller) Center() error {
	c.DisableManual()
	c.stab.Reset()
	return c.driver.Center()
}
