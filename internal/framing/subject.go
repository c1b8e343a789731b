package framing

import (
	"fmt"
	"image"
)

// Kind tags the category of a detected subject.
type Kind string

const (
	KindFace Kind = "face"
	KindBody Kind = "body"
)

// Subject is one detection from the vision collaborator. Read-only to
// the framer; the detection model itself lives outside this module.
type Subject struct {
	BBox       image.Rectangle `json:"bbox"`
	Confidence float64         `json:"confidence"`
	Kind       Kind            `json:"kind"`
}

// NewSubject validates and builds a Subject from a pixel bounding box.
func NewSubject(x, y, w, h int, confidence float64, kind Kind) (Subject, error) {
	if w <= 0 || h <= 0 {
		return Subject{}, fmt.Errorf("framing: bbox dimensions must be positive, got %dx%d", w, h)
	}
	if confidence < 0 || confidence > 1 {
		return Subject{}, fmt.Errorf("framing: confidence must be in [0, 1], got %g", confidence)
	}
	return Subject{
		BBox:       image.Rect(x, y, x+w, y+h),
		Confidence: confidence,
		Kind:       kind,
	}, nil
}

// Center returns the pixel center of the bounding box.
func (s Subject) Center() image.Point {
	return image.Pt(s.BBox.Min.X+s.BBox.Dx()/2, s.BBox.Min.Y+s.BBox.Dy()/2)
}

// Area returns the bounding box area in pixels.
func (s Subject) Area() int {
	return s.BBox.Dx() * s.BBox.Dy()
}

// FramingData is the per-frame framing decision. When nothing is
// detected the optimal angles default to the centered pose (90, 90).
type FramingData struct {
	Detected     bool            `json:"detected"`
	BBox         image.Rectangle `json:"bbox"`
	Center       image.Point     `json:"center"`
	Confidence   float64         `json:"confidence"`
	OptimalPitch float64         `json:"optimal_pitch"`
	OptimalYaw   float64         `json:"optimal_yaw"`
}

// DetectionSource supplies per-frame detections from an external
// vision collaborator, along with the frame dimensions in pixels.
type DetectionSource interface {
	Detect() (subjects []Subject, frameW, frameH int, err error)
}
