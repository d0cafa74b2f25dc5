//go:build !opencv
// +build !opencv

package motion

import "image"

// OpenCV is unavailable in this build. Rebuild with -tags=opencv.
type OpenCV struct{}

// NewOpenCV always fails without the opencv build tag.
func NewOpenCV(Params) (*OpenCV, error) {
	return nil, ErrOpenCVDisabled
}

// Close is a no-op.
func (*OpenCV) Close() error { return nil }

// Detect always fails without the opencv build tag.
func (*OpenCV) Detect(prev, cur *image.Gray) (*Detection, error) {
	return nil, ErrOpenCVDisabled
}
