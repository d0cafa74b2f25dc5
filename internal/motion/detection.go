package motion

import (
	"errors"
	"fmt"
	"image"
)

// ErrFrameMismatch is returned when the two frames handed to a detector do
// not share the same bounds.
var ErrFrameMismatch = errors.New("motion: frame bounds differ")

// Detection is the moving region selected in one frame pair.
type Detection struct {
	Box        image.Rectangle // Max is exclusive
	Centroid   image.Point     // Box.Min + (width/2, height/2), integer division
	AreaPixels int
}

// Detector finds the dominant moving region between two frames.
// A nil Detection with a nil error means nothing qualified.
type Detector interface {
	Detect(prev, cur *image.Gray) (*Detection, error)
}

// Params tunes both detector backends.
type Params struct {
	Threshold     uint8 // difference strictly above this is motion
	MinAreaPixels int   // region area must be strictly greater
	KernelSize    int   // structuring element side, odd
	KernelDisk    bool  // disk (cross for 3) instead of square element
}

// DefaultParams returns threshold 10, min area 20 and a 3x3 disk element.
func DefaultParams() Params {
	return Params{
		Threshold:     10,
		MinAreaPixels: 20,
		KernelSize:    3,
		KernelDisk:    true,
	}
}

func newDetection(box image.Rectangle, area int) *Detection {
	return &Detection{
		Box:        box,
		Centroid:   image.Pt(box.Min.X+box.Dx()/2, box.Min.Y+box.Dy()/2),
		AreaPixels: area,
	}
}

func checkFrames(prev, cur *image.Gray) error {
	if prev == nil || cur == nil {
		return fmt.Errorf("%w: nil frame", ErrFrameMismatch)
	}
	if prev.Bounds() != cur.Bounds() {
		return fmt.Errorf("%w: %v vs %v", ErrFrameMismatch, prev.Bounds(), cur.Bounds())
	}
	return nil
}

// ErrOpenCVDisabled is returned by the OpenCV backend in builds without the
// opencv tag.
var ErrOpenCVDisabled = errors.New("OpenCV support not enabled: rebuild with -tags=opencv")

// Backend names accepted by New.
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// New returns the detector for backend. Callers should Close detectors that
// implement io.Closer.
func New(backend string, p Params) (Detector, error) {
	switch backend {
	case "", BackendNative:
		return NewNative(p), nil
	case BackendOpenCV:
		d, err := NewOpenCV(p)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("motion: unknown detector backend %q", backend)
	}
}
