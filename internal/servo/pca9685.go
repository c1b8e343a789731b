package servo

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// PWM pulse bounds (out of 4096) for a standard hobby servo at 50 Hz.
const (
	servoMinPwm = 110
	servoMaxPwm = 540
)

// pcaActuator drives the gimbal servos through a PCA9685 16-channel
// PWM controller on the I2C bus.
type pcaActuator struct {
	pitch *pca9685.Servo
	yaw   *pca9685.Servo
}

// NewPCA9685Actuator opens the default I2C bus and configures the two
// servo channels. Pass pca9685.I2CAddr-compatible addresses; 0x40 is
// the module default.
func NewPCA9685Actuator(addr uint16, pitchChannel, yawChannel int) (Actuator, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("servo: periph host init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("servo: open I2C bus: %w", err)
	}

	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("servo: PCA9685 at 0x%02X: %w", addr, err)
	}

	if err := dev.SetPwmFreq(50 * physic.Hertz); err != nil {
		return nil, fmt.Errorf("servo: set PWM frequency: %w", err)
	}

	group := pca9685.NewServoGroup(dev, servoMinPwm, servoMaxPwm, 0, 180*physic.Degree)
	log.Printf("servo: PCA9685 actuator at 0x%02X, pitch ch%d, yaw ch%d", addr, pitchChannel, yawChannel)

	return &pcaActuator{
		pitch: group.GetServo(pitchChannel),
		yaw:   group.GetServo(yawChannel),
	}, nil
}

func (a *pcaActuator) Move(pitch, yaw float64) error {
	if err := a.pitch.SetAngle(physic.Angle(pitch * float64(physic.Degree))); err != nil {
		return fmt.Errorf("servo: pitch channel: %w", err)
	}
	if err := a.yaw.SetAngle(physic.Angle(yaw * float64(physic.Degree))); err != nil {
		return fmt.Errorf("servo: yaw channel: %w", err)
	}
	return nil
}

func (a *pcaActuator) Close() error {
	return nil
}
