package framing

import (
	"image"
	"math"
)

// Composition selects the reference point subjects are steered toward.
type Composition string

const (
	CompositionCenter       Composition = "center"
	CompositionRuleOfThirds Composition = "rule_of_thirds"
)

// Fixed pixel-to-angle gains for the framing math.
const (
	horizontalDegPerPx = 0.1
	verticalDegPerPx   = 0.1
)

// centerBufferSize bounds the smoothed-center history.
const centerBufferSize = 10

// Config holds the framer tuning values.
type Config struct {
	// Smoothing in [0,1]; higher values damp center movement more.
	Smoothing   float64
	Composition Composition
	// HeadroomRatio raises the vertical reference point by this
	// fraction of the subject's height, leaving head space scaled to
	// the subject's size.
	HeadroomRatio float64
	// LostFrameLimit is how many consecutive empty frames are
	// tolerated before reverting to the centered default.
	LostFrameLimit int
}

// DefaultConfig returns the field-tested framer tuning.
func DefaultConfig() Config {
	return Config{
		Smoothing:      0.15,
		Composition:    CompositionCenter,
		HeadroomRatio:  0.15,
		LostFrameLimit: 30,
	}
}

// AutoFramer turns subject detections into target gimbal angles under
// a composition rule. It has a single logical owner and no internal
// locking.
type AutoFramer struct {
	cfg Config

	lostFrames   int
	hasLast      bool
	last         FramingData
	centerBuffer []image.Point
}

// New creates a framer. Invalid composition values fall back to center.
func New(cfg Config) *AutoFramer {
	if cfg.Composition != CompositionCenter && cfg.Composition != CompositionRuleOfThirds {
		cfg.Composition = CompositionCenter
	}
	if cfg.LostFrameLimit <= 0 {
		cfg.LostFrameLimit = 30
	}
	return &AutoFramer{cfg: cfg}
}

// LostFrames reports how many consecutive frames have had no subject.
func (f *AutoFramer) LostFrames() int { return f.lostFrames }

// ProcessFrame merges the detections, picks the primary subject and
// returns the framing decision for one frame. When nothing is found
// the lost-frame counter increments; the last known target is held
// (with Detected=false) until the counter passes the configured limit,
// after which the framer reverts to the centered default.
func (f *AutoFramer) ProcessFrame(detections []Subject, frameW, frameH int) FramingData {
	var faces, bodies []Subject
	for _, d := range detections {
		if d.Kind == KindFace {
			faces = append(faces, d)
		} else {
			bodies = append(bodies, d)
		}
	}
	merged := f.mergeDetections(faces, bodies)

	if len(merged) == 0 {
		f.lostFrames++
		if f.hasLast && f.lostFrames < f.cfg.LostFrameLimit {
			held := f.last
			held.Detected = false
			return held
		}
		f.hasLast = false
		f.centerBuffer = f.centerBuffer[:0]
		return FramingData{
			Detected:     false,
			Center:       image.Pt(frameW/2, frameH/2),
			OptimalPitch: 90,
			OptimalYaw:   90,
		}
	}

	f.lostFrames = 0
	primary := selectPrimary(merged)
	center := f.smoothCenter(primary.Center())
	pitch, yaw := f.CalculateFraming(primary.BBox, frameW, frameH)

	f.last = FramingData{
		Detected:     true,
		BBox:         primary.BBox,
		Center:       center,
		Confidence:   primary.Confidence,
		OptimalPitch: pitch,
		OptimalYaw:   yaw,
	}
	f.hasLast = true
	return f.last
}

// selectPrimary picks the highest-confidence subject, tie-broken by
// larger area.
func selectPrimary(subjects []Subject) Subject {
	best := subjects[0]
	for _, s := range subjects[1:] {
		if s.Confidence > best.Confidence ||
			(s.Confidence == best.Confidence && s.Area() > best.Area()) {
			best = s
		}
	}
	return best
}

// smoothCenter damps frame-to-frame center jumps and records the
// result in a bounded buffer.
func (f *AutoFramer) smoothCenter(raw image.Point) image.Point {
	smoothed := raw
	if n := len(f.centerBuffer); n > 0 {
		prev := f.centerBuffer[n-1]
		smoothed = image.Pt(
			prev.X+int(float64(raw.X-prev.X)*(1-f.cfg.Smoothing)),
			prev.Y+int(float64(raw.Y-prev.Y)*(1-f.cfg.Smoothing)),
		)
	}
	f.centerBuffer = append(f.centerBuffer, smoothed)
	if len(f.centerBuffer) > centerBufferSize {
		f.centerBuffer = f.centerBuffer[1:]
	}
	return smoothed
}

// CalculateFraming maps a bounding box to target pitch/yaw angles by
// offsetting the box center from the composition reference point
// through fixed degrees-per-pixel gains.
//
// Sign convention (shared with the tracking path): image y grows
// downward. A subject right of the reference yields yaw > 90; a
// subject above it yields pitch > 90 (tilt up). Results are clamped to
// [0, 180]; off-frame boxes are handled like any other input.
func (f *AutoFramer) CalculateFraming(bbox image.Rectangle, frameW, frameH int) (pitch, yaw float64) {
	cx := float64(bbox.Min.X) + float64(bbox.Dx())/2
	cy := float64(bbox.Min.Y) + float64(bbox.Dy())/2

	refX, refY := f.referencePoint(cx, cy, frameW, frameH)
	refY -= f.cfg.HeadroomRatio * float64(bbox.Dy())

	yaw = 90 + (cx-refX)*horizontalDegPerPx
	pitch = 90 + (refY-cy)*verticalDegPerPx

	return clampAngle(pitch), clampAngle(yaw)
}

// referencePoint returns the composition target: the frame center, or
// the rule-of-thirds intersection nearest to the subject center.
func (f *AutoFramer) referencePoint(cx, cy float64, frameW, frameH int) (x, y float64) {
	w := float64(frameW)
	h := float64(frameH)
	if f.cfg.Composition != CompositionRuleOfThirds {
		return w / 2, h / 2
	}

	xs := [2]float64{w / 3, 2 * w / 3}
	ys := [2]float64{h / 3, 2 * h / 3}
	x, y = xs[0], ys[0]
	best := math.Inf(1)
	for _, ix := range xs {
		for _, iy := range ys {
			d := (cx-ix)*(cx-ix) + (cy-iy)*(cy-iy)
			if d < best {
				best = d
				x, y = ix, iy
			}
		}
	}
	return x, y
}

// CalculateMultiSubjectFraming frames toward the confidence- and
// area-weighted centroid of the subject centers. With no subjects it
// returns the centered pose.
func (f *AutoFramer) CalculateMultiSubjectFraming(subjects []Subject, frameW, frameH int) (pitch, yaw float64) {
	if len(subjects) == 0 {
		return 90, 90
	}

	var sumW, sumX, sumY, sumDx, sumDy float64
	for _, s := range subjects {
		w := s.Confidence * float64(s.Area())
		if w <= 0 {
			w = 1e-6 // degenerate boxes still count a little
		}
		c := s.Center()
		sumW += w
		sumX += w * float64(c.X)
		sumY += w * float64(c.Y)
		sumDx += float64(s.BBox.Dx())
		sumDy += float64(s.BBox.Dy())
	}

	cx := int(sumX / sumW)
	cy := int(sumY / sumW)
	avgDx := int(sumDx / float64(len(subjects)))
	avgDy := int(sumDy / float64(len(subjects)))

	group := image.Rect(cx-avgDx/2, cy-avgDy/2, cx+avgDx/2, cy+avgDy/2)
	return f.CalculateFraming(group, frameW, frameH)
}

// mergeDetections collapses a detection fully contained inside another
// into the higher-specificity entry: a face inside a body wins over
// the body. Non-overlapping detections are all retained.
func (f *AutoFramer) mergeDetections(faces, bodies []Subject) []Subject {
	merged := make([]Subject, 0, len(faces)+len(bodies))
	merged = append(merged, faces...)

	for _, body := range bodies {
		contained := false
		for _, face := range faces {
			// In is vacuously true for empty rectangles; a degenerate
			// face must not swallow unrelated bodies.
			if !face.BBox.Empty() && face.BBox.In(body.BBox) {
				contained = true
				break
			}
		}
		if !contained {
			merged = append(merged, body)
		}
	}
	return merged
}

func clampAngle(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 180 {
		return 180
	}
	return v
}
