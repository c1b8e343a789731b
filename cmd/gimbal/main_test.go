package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/servo"
)

// missingHardwareConfig points every hardware handle at something that
// cannot exist on any host.
func missingHardwareConfig() *config.Config {
	cfg := config.Default()
	cfg.UseSimulatedIMU = false
	cfg.IMUSPIDevice = "/dev/no-such-spidev"
	cfg.IMUCSPin = "no-such-pin"
	cfg.ServoPWMAddr = 0
	cfg.ServoSerialPort = "/dev/no-such-tty"
	return cfg
}

func TestBuildSensor_FallsBackToSimulation(t *testing.T) {
	sensor, err := buildSensor(missingHardwareConfig(), false)

	// Missing IMU hardware degrades to the simulated source, it is
	// never fatal.
	require.NoError(t, err)
	require.NotNil(t, sensor)

	require.NoError(t, sensor.Start())
	time.Sleep(50 * time.Millisecond)
	sensor.Stop()

	assert.True(t, sensor.GetReading().Valid, "simulated source must produce samples")
}

func TestBuildActuator_FallsBackToNop(t *testing.T) {
	act := buildActuator(missingHardwareConfig(), false)

	require.NotNil(t, act)
	assert.IsType(t, servo.Nop{}, act, "missing servo hardware degrades to the no-op actuator")
	assert.NoError(t, act.Move(90, 90))
}

func TestBuildActuator_SimFlag(t *testing.T) {
	act := buildActuator(config.Default(), true)
	assert.IsType(t, servo.Nop{}, act)
}
