package stabilizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPIDUpdate_ProportionalOnly(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 2.0})

	out := pid.Update(3.0, 0.1)

	// Ki and Kd are zero, only the proportional term contributes.
	assert.InDelta(t, 6.0, out, 1e-9)
}

func TestPIDUpdate_NonPositiveDt(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 1, Ki: 1, Kd: 1})
	pid.Update(5.0, 0.1)
	integralBefore := pid.Integral()

	assert.Equal(t, 0.0, pid.Update(5.0, 0))
	assert.Equal(t, 0.0, pid.Update(5.0, -0.1))
	assert.Equal(t, integralBefore, pid.Integral(), "state must be untouched when dt <= 0")
}

func TestPIDUpdate_IntegralAccumulates(t *testing.T) {
	pid := NewPIDController(PIDConfig{Ki: 1.0})

	pid.Update(2.0, 0.5)
	pid.Update(2.0, 0.5)

	assert.InDelta(t, 2.0, pid.Integral(), 1e-9)
}

func TestPIDUpdate_IntegralClamp(t *testing.T) {
	pid := NewPIDController(PIDConfig{Ki: 1.0, IntegralLimit: 1.5})

	for i := 0; i < 100; i++ {
		pid.Update(10.0, 0.1)
	}

	assert.InDelta(t, 1.5, pid.Integral(), 1e-9, "integral must not wind up past the limit")

	pid.Reset()
	for i := 0; i < 100; i++ {
		pid.Update(-10.0, 0.1)
	}
	assert.InDelta(t, -1.5, pid.Integral(), 1e-9)
}

func TestPIDUpdate_DerivativeTerm(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kd: 0.5})

	// First call: derivative is (err - 0) / dt.
	out := pid.Update(1.0, 0.1)
	assert.InDelta(t, 5.0, out, 1e-9)

	// Error decreasing: the derivative term opposes it.
	out = pid.Update(0.0, 0.1)
	assert.InDelta(t, -5.0, out, 1e-9)
}

func TestPIDUpdate_OutputClamp(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 100, OutputLimit: 7})

	assert.Equal(t, 7.0, pid.Update(10.0, 0.1))
	assert.Equal(t, -7.0, pid.Update(-10.0, 0.1))
}

func TestPIDUpdate_ZeroLimitsDisableClamps(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 100})

	assert.InDelta(t, 1000.0, pid.Update(10.0, 0.1), 1e-9)
}

func TestPIDReset(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 1, Ki: 1, Kd: 1})
	pid.Update(4.0, 0.1)
	pid.Reset()

	assert.Equal(t, 0.0, pid.Integral())

	// After a reset the derivative sees no previous error.
	out := pid.Update(1.0, 1.0)
	assert.InDelta(t, 1.0+1.0+1.0, out, 1e-9)
}
