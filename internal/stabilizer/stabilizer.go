package stabilizer

import (
	"image"
	"math"
)

// historySize bounds the smoothing buffers; oldest entries are evicted.
const historySize = 10

// trackPixToDeg converts a pixel offset to a tracking error in degrees.
const trackPixToDeg = 0.1

// Config holds the stabilizer tuning values.
type Config struct {
	// Gain scales the shake compensation.
	Gain float64
	// Smoothing in [0,1] weights the history average against the raw
	// compensation; 0 disables smoothing.
	Smoothing float64
	// FilterAlpha in [0,1] is the complementary-filter gyro weight.
	FilterAlpha float64
	// Tracking PID gains, shared by the pitch and yaw axes.
	Track PIDConfig
}

// DefaultConfig mirrors the field-tested tuning.
func DefaultConfig() Config {
	return Config{
		Gain:        0.7,
		Smoothing:   0.3,
		FilterAlpha: 0.98,
		Track: PIDConfig{
			Kp:            0.5,
			Ki:            0.1,
			Kd:            0.05,
			IntegralLimit: 10,
			OutputLimit:   30,
		},
	}
}

// Stabilizer computes shake compensation from IMU data and tracking
// compensation from subject position, and blends the two. It has a
// single logical owner and no internal locking; callers sharing one
// instance must serialize access.
type Stabilizer struct {
	cfg Config

	// Orientation estimate, degrees.
	roll  float64
	pitch float64
	yaw   float64

	pitchPID *PIDController
	yawPID   *PIDController

	pitchHistory []float64
	yawHistory   []float64
}

// New creates a stabilizer with zeroed orientation state.
func New(cfg Config) *Stabilizer {
	return &Stabilizer{
		cfg:      cfg,
		pitchPID: NewPIDController(cfg.Track),
		yawPID:   NewPIDController(cfg.Track),
	}
}

// Roll returns the estimated roll in degrees.
func (s *Stabilizer) Roll() float64 { return s.roll }

// Pitch returns the estimated pitch in degrees.
func (s *Stabilizer) Pitch() float64 { return s.pitch }

// Yaw returns the estimated yaw in degrees.
func (s *Stabilizer) Yaw() float64 { return s.yaw }

// HistoryLen reports how many smoothing entries are buffered.
func (s *Stabilizer) HistoryLen() int { return len(s.pitchHistory) }

// CalculateCompensation updates the orientation estimate from one IMU
// sample and returns the pitch/yaw compensation in degrees. gyro is in
// rad/s (x=roll, y=pitch, z=yaw rates), accel in g. A complementary
// filter blends the gyro-integrated estimate with the accelerometer
// tilt, bounding integration drift while damping accelerometer noise;
// yaw has no absolute reference and is integrated only. Compensation
// opposes the estimated disturbance. dt <= 0 is a no-op.
func (s *Stabilizer) CalculateCompensation(gyro, accel [3]float64, dt float64) (pitchComp, yawComp float64) {
	if dt <= 0 {
		return 0, 0
	}

	radToDeg := 180 / math.Pi
	rollDelta := gyro[0] * radToDeg * dt
	pitchDelta := gyro[1] * radToDeg * dt
	yawDelta := gyro[2] * radToDeg * dt

	rollAcc := math.Atan2(accel[1], accel[2]) * radToDeg
	pitchAcc := math.Atan2(-accel[0], math.Sqrt(accel[1]*accel[1]+accel[2]*accel[2])) * radToDeg

	alpha := s.cfg.FilterAlpha
	s.roll = alpha*(s.roll+rollDelta) + (1-alpha)*rollAcc
	s.pitch = alpha*(s.pitch+pitchDelta) + (1-alpha)*pitchAcc
	s.yaw += yawDelta

	pitchComp = s.smooth(&s.pitchHistory, -s.cfg.Gain*s.pitch)
	yawComp = s.smooth(&s.yawHistory, -s.cfg.Gain*s.yaw)
	return pitchComp, yawComp
}

// smooth pushes a raw compensation value into the bounded history and
// returns the history-weighted value.
func (s *Stabilizer) smooth(history *[]float64, raw float64) float64 {
	*history = append(*history, raw)
	if len(*history) > historySize {
		*history = (*history)[1:]
	}
	if s.cfg.Smoothing <= 0 {
		return raw
	}
	var sum float64
	for _, v := range *history {
		sum += v
	}
	mean := sum / float64(len(*history))
	return (1-s.cfg.Smoothing)*raw + s.cfg.Smoothing*mean
}

// CalculateTrackingCompensation drives the subject center toward the
// frame center with one PID per axis and returns pitch/yaw adjustments
// in degrees.
//
// Sign convention (shared with the framing path): image y grows
// downward. A subject right of center yields a positive yaw
// adjustment; a subject above center yields a positive pitch
// adjustment (tilt up). dt <= 0 is a no-op.
func (s *Stabilizer) CalculateTrackingCompensation(subject, frameCenter image.Point, dt float64) (pitchAdj, yawAdj float64) {
	if dt <= 0 {
		return 0, 0
	}

	yawErr := float64(subject.X-frameCenter.X) * trackPixToDeg
	pitchErr := float64(frameCenter.Y-subject.Y) * trackPixToDeg

	return s.pitchPID.Update(pitchErr, dt), s.yawPID.Update(yawErr, dt)
}

// BlendTrackingStabilization merges tracking target angles with shake
// compensation. trackingWeight 1.0 returns the tracking angles
// unmodified; 0.0 adds the full compensation on top of them.
func (s *Stabilizer) BlendTrackingStabilization(trackingPitch, trackingYaw, stabPitch, stabYaw, trackingWeight float64) (pitch, yaw float64) {
	w := clamp(trackingWeight, 0, 1)
	pitch = trackingPitch + stabPitch*(1-w)
	yaw = trackingYaw + stabYaw*(1-w)
	return pitch, yaw
}

// ApplyJerkLimiting bounds the per-call angular change to maxJerk·dt
// per axis, moving monotonically toward the target without overshoot.
// A non-positive dt returns the current position unchanged.
func (s *Stabilizer) ApplyJerkLimiting(targetPitch, targetYaw, currentPitch, currentYaw, dt, maxJerk float64) (pitch, yaw float64) {
	if dt <= 0 {
		return currentPitch, currentYaw
	}
	maxStep := maxJerk * dt
	return stepToward(currentPitch, targetPitch, maxStep),
		stepToward(currentYaw, targetYaw, maxStep)
}

func stepToward(current, target, maxStep float64) float64 {
	delta := target - current
	if delta > maxStep {
		delta = maxStep
	} else if delta < -maxStep {
		delta = -maxStep
	}
	return current + delta
}

// Reset zeroes the orientation estimates, clears the smoothing history
// and resets the tracking PIDs.
func (s *Stabilizer) Reset() {
	s.roll = 0
	s.pitch = 0
	s.yaw = 0
	s.pitchHistory = s.pitchHistory[:0]
	s.yawHistory = s.yawHistory[:0]
	s.pitchPID.Reset()
	s.yawPID.Reset()
}
