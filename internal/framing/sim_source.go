package framing

import (
	"image"
	"math"
	"sync"
)

// simSource emits a single synthetic face drifting slowly around the
// frame center. It stands in for the vision collaborator when no
// camera pipeline is attached.
type simSource struct {
	mu     sync.Mutex
	step   int
	frameW int
	frameH int
}

// NewSimSource creates a deterministic detection source for the given
// frame size.
func NewSimSource(frameW, frameH int) DetectionSource {
	return &simSource{frameW: frameW, frameH: frameH}
}

func (s *simSource) Detect() ([]Subject, int, int, error) {
	s.mu.Lock()
	t := float64(s.step) / 30.0
	s.step++
	s.mu.Unlock()

	const boxW, boxH = 120, 120
	cx := float64(s.frameW)/2 + float64(s.frameW)/5*math.Sin(2*math.Pi*0.05*t)
	cy := float64(s.frameH)/2 + float64(s.frameH)/8*math.Cos(2*math.Pi*0.03*t)

	face := Subject{
		BBox:       image.Rect(int(cx)-boxW/2, int(cy)-boxH/2, int(cx)+boxW/2, int(cy)+boxH/2),
		Confidence: 0.9,
		Kind:       KindFace,
	}
	return []Subject{face}, s.frameW, s.frameH, nil
}
