package stabilizer

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// levelAccel is 1 g straight down the z axis.
var levelAccel = [3]float64{0, 0, 1}

func TestCalculateCompensation_NoMotion(t *testing.T) {
	s := New(DefaultConfig())

	var pitchComp, yawComp float64
	for i := 0; i < 50; i++ {
		pitchComp, yawComp = s.CalculateCompensation([3]float64{0, 0, 0}, levelAccel, 0.01)
	}

	assert.InDelta(t, 0.0, pitchComp, 1e-6)
	assert.InDelta(t, 0.0, yawComp, 1e-6)
}

func TestCalculateCompensation_PitchRateOpposed(t *testing.T) {
	s := New(DefaultConfig())

	// Positive pitch rate builds a positive pitch estimate; the
	// compensation opposes it.
	var pitchComp, yawComp float64
	for i := 0; i < 20; i++ {
		pitchComp, yawComp = s.CalculateCompensation([3]float64{0, 0.5, 0}, levelAccel, 0.01)
	}

	assert.Negative(t, pitchComp)
	assert.InDelta(t, 0.0, yawComp, 1e-6, "yaw must be unaffected by pitch motion")
	assert.Positive(t, s.Pitch())
}

func TestCalculateCompensation_YawIntegrationOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 0
	s := New(cfg)

	for i := 0; i < 20; i++ {
		s.CalculateCompensation([3]float64{0, 0, 0.5}, levelAccel, 0.01)
	}
	yawAfterMotion := s.Yaw()
	assert.Positive(t, yawAfterMotion)

	// With the rate gone the yaw estimate holds: there is no absolute
	// reference pulling it back.
	for i := 0; i < 50; i++ {
		s.CalculateCompensation([3]float64{0, 0, 0}, levelAccel, 0.01)
	}
	assert.InDelta(t, yawAfterMotion, s.Yaw(), 1e-9)
}

func TestCalculateCompensation_PitchConvergesToAccel(t *testing.T) {
	s := New(DefaultConfig())

	// Stationary but tilted: accel shows -30-ish degrees of pitch. The
	// complementary filter must pull the estimate toward it.
	tilted := [3]float64{0.5, 0, 0.866}
	for i := 0; i < 2000; i++ {
		s.CalculateCompensation([3]float64{0, 0, 0}, tilted, 0.01)
	}

	assert.InDelta(t, -30.0, s.Pitch(), 1.0)
}

func TestCalculateCompensation_NonPositiveDt(t *testing.T) {
	s := New(DefaultConfig())
	s.CalculateCompensation([3]float64{0, 1, 1}, levelAccel, 0.01)
	pitchBefore := s.Pitch()

	pitchComp, yawComp := s.CalculateCompensation([3]float64{1, 1, 1}, levelAccel, 0)
	assert.Equal(t, 0.0, pitchComp)
	assert.Equal(t, 0.0, yawComp)
	assert.Equal(t, pitchBefore, s.Pitch())
}

func TestCalculateTrackingCompensation_Signs(t *testing.T) {
	s := New(DefaultConfig())
	center := image.Pt(320, 240)

	// Subject right of center: positive yaw adjustment.
	_, yawAdj := s.CalculateTrackingCompensation(image.Pt(420, 240), center, 0.1)
	assert.Positive(t, yawAdj)

	s.Reset()
	// Subject left of center: negative yaw adjustment.
	_, yawAdj = s.CalculateTrackingCompensation(image.Pt(220, 240), center, 0.1)
	assert.Negative(t, yawAdj)

	s.Reset()
	// Subject above center (smaller y): positive pitch adjustment.
	pitchAdj, _ := s.CalculateTrackingCompensation(image.Pt(320, 140), center, 0.1)
	assert.Positive(t, pitchAdj)

	s.Reset()
	pitchAdj, _ = s.CalculateTrackingCompensation(image.Pt(320, 340), center, 0.1)
	assert.Negative(t, pitchAdj)
}

func TestCalculateTrackingCompensation_CenteredSubject(t *testing.T) {
	s := New(DefaultConfig())

	pitchAdj, yawAdj := s.CalculateTrackingCompensation(image.Pt(320, 240), image.Pt(320, 240), 0.1)

	assert.InDelta(t, 0.0, pitchAdj, 1e-9)
	assert.InDelta(t, 0.0, yawAdj, 1e-9)
}

func TestCalculateTrackingCompensation_NonPositiveDt(t *testing.T) {
	s := New(DefaultConfig())

	pitchAdj, yawAdj := s.CalculateTrackingCompensation(image.Pt(0, 0), image.Pt(320, 240), 0)

	assert.Equal(t, 0.0, pitchAdj)
	assert.Equal(t, 0.0, yawAdj)
}

func TestBlendTrackingStabilization(t *testing.T) {
	s := New(DefaultConfig())

	// Full tracking weight: compensation is ignored.
	pitch, yaw := s.BlendTrackingStabilization(10, 20, 5, -5, 1.0)
	assert.Equal(t, 10.0, pitch)
	assert.Equal(t, 20.0, yaw)

	// Zero weight: full compensation on top of the target.
	pitch, yaw = s.BlendTrackingStabilization(10, 20, 5, -5, 0.0)
	assert.Equal(t, 15.0, pitch)
	assert.Equal(t, 15.0, yaw)

	// Half weight.
	pitch, yaw = s.BlendTrackingStabilization(10, 20, 5, -5, 0.5)
	assert.InDelta(t, 12.5, pitch, 1e-9)
	assert.InDelta(t, 17.5, yaw, 1e-9)
}

func TestBlendTrackingStabilization_WeightClamped(t *testing.T) {
	s := New(DefaultConfig())

	pitch, _ := s.BlendTrackingStabilization(10, 10, 4, 4, 2.0)
	assert.Equal(t, 10.0, pitch)

	pitch, _ = s.BlendTrackingStabilization(10, 10, 4, 4, -1.0)
	assert.Equal(t, 14.0, pitch)
}

func TestApplyJerkLimiting_BoundsStep(t *testing.T) {
	s := New(DefaultConfig())

	// maxJerk 100 deg/s over 10 ms allows at most 1 degree per axis.
	pitch, yaw := s.ApplyJerkLimiting(120, 60, 90, 90, 0.01, 100)
	assert.Equal(t, 91.0, pitch)
	assert.Equal(t, 89.0, yaw)
}

func TestApplyJerkLimiting_NoOvershoot(t *testing.T) {
	s := New(DefaultConfig())

	pitch, yaw := 90.0, 90.0
	for i := 0; i < 500; i++ {
		pitch, yaw = s.ApplyJerkLimiting(95, 85, pitch, yaw, 0.01, 100)
	}

	assert.InDelta(t, 95.0, pitch, 1e-9)
	assert.InDelta(t, 85.0, yaw, 1e-9)
}

func TestApplyJerkLimiting_SmallDeltaPassesThrough(t *testing.T) {
	s := New(DefaultConfig())

	pitch, yaw := s.ApplyJerkLimiting(90.3, 89.8, 90, 90, 0.01, 100)
	assert.InDelta(t, 90.3, pitch, 1e-9)
	assert.InDelta(t, 89.8, yaw, 1e-9)
}

func TestApplyJerkLimiting_NonPositiveDt(t *testing.T) {
	s := New(DefaultConfig())

	pitch, yaw := s.ApplyJerkLimiting(120, 60, 90, 91, 0, 100)
	assert.Equal(t, 90.0, pitch)
	assert.Equal(t, 91.0, yaw)
}

func TestReset(t *testing.T) {
	s := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		s.CalculateCompensation([3]float64{0.3, 0.5, 0.2}, levelAccel, 0.01)
	}
	assert.NotZero(t, s.Pitch())
	assert.NotZero(t, s.HistoryLen())

	s.Reset()

	assert.Zero(t, s.Roll())
	assert.Zero(t, s.Pitch())
	assert.Zero(t, s.Yaw())
	assert.Zero(t, s.HistoryLen())
}

func TestSmoothing_HistoryBounded(t *testing.T) {
	s := New(DefaultConfig())

	for i := 0; i < historySize*3; i++ {
		s.CalculateCompensation([3]float64{0, 0.1, 0}, levelAccel, 0.01)
	}

	assert.Equal(t, historySize, s.HistoryLen())
}
