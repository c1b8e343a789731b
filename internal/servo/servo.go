package servo

import (
	"fmt"
	"time"
)

// Actuator is the physical transport the driver writes clamped angles
// to. Implementations exist for an Arduino over serial and a PCA9685
// PWM controller over I2C; Nop is used when no hardware is attached.
type Actuator interface {
	Move(pitch, yaw float64) error
	Close() error
}

// Nop discards all movement commands.
type Nop struct{}

func (Nop) Move(pitch, yaw float64) error { return nil }
func (Nop) Close() error                  { return nil }

// Range is an inclusive angle interval in degrees.
type Range struct {
	Min float64
	Max float64
}

func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r Range) mid() float64 {
	return (r.Min + r.Max) / 2
}

// smoothStepInterval is the cadence of intermediate steps during a
// smooth transition.
const smoothStepInterval = 20 * time.Millisecond

// Driver owns the commanded gimbal pose. Every mutation clamps each
// axis independently to its configured range before the actuator sees
// it. The driver has a single logical owner and no internal locking.
type Driver struct {
	actuator   Actuator
	pitchRange Range
	yawRange   Range

	currentPitch float64
	currentYaw   float64
}

// NewDriver validates the ranges and creates a driver centered in them.
func NewDriver(actuator Actuator, pitchRange, yawRange Range) (*Driver, error) {
	if actuator == nil {
		actuator = Nop{}
	}
	for _, r := range []struct {
		name string
		r    Range
	}{{"pitch", pitchRange}, {"yaw", yawRange}} {
		if r.r.Min >= r.r.Max {
			return nil, fmt.Errorf("servo: %s range min %g must be below max %g", r.name, r.r.Min, r.r.Max)
		}
		if r.r.Min < 0 || r.r.Max > 180 {
			return nil, fmt.Errorf("servo: %s range [%g, %g] must stay within [0, 180]", r.name, r.r.Min, r.r.Max)
		}
	}
	return &Driver{
		actuator:     actuator,
		pitchRange:   pitchRange,
		yawRange:     yawRange,
		currentPitch: pitchRange.mid(),
		currentYaw:   yawRange.mid(),
	}, nil
}

// SetPosition clamps each axis to its range, updates the pose and
// drives the actuator. Out-of-range targets are clamped, never errors.
func (d *Driver) SetPosition(pitch, yaw float64) error {
	d.currentPitch = d.pitchRange.clamp(pitch)
	d.currentYaw = d.yawRange.clamp(yaw)
	if err := d.actuator.Move(d.currentPitch, d.currentYaw); err != nil {
		return fmt.Errorf("servo: move: %w", err)
	}
	return nil
}

// SetPositionSmooth ramps from the current pose to the target over the
// given duration. The final step lands exactly on the clamped target.
func (d *Driver) SetPositionSmooth(pitch, yaw float64, duration time.Duration) error {
	targetPitch := d.pitchRange.clamp(pitch)
	targetYaw := d.yawRange.clamp(yaw)

	steps := int(duration / smoothStepInterval)
	startPitch := d.currentPitch
	startYaw := d.currentYaw

	for i := 1; i < steps; i++ {
		frac := float64(i) / float64(steps)
		if err := d.SetPosition(
			startPitch+(targetPitch-startPitch)*frac,
			startYaw+(targetYaw-startYaw)*frac,
		); err != nil {
			return err
		}
		time.Sleep(smoothStepInterval)
	}
	return d.SetPosition(targetPitch, targetYaw)
}

// GetPosition returns the current commanded pose.
func (d *Driver) GetPosition() (pitch, yaw float64) {
	return d.currentPitch, d.currentYaw
}

// Center moves both axes to the midpoint of their ranges.
func (d *Driver) Center() error {
	return d.SetPosition(d.pitchRange.mid(), d.yawRange.mid())
}

// Close releases the underlying actuator.
func (d *Driver) Close() error {
	return d.actuator.Close()
}
