//go:build !opencv
// +build !opencv

package video

import "image"

// Capture is unavailable in this build. Rebuild with -tags=opencv.
type Capture struct{}

// OpenCapture always fails without the opencv build tag.
func OpenCapture(path string, fps float64) (*Capture, error) {
	return nil, ErrOpenCVDisabled
}

// Next implements FrameSource.
func (*Capture) Next() (*image.Gray, error) { return nil, ErrOpenCVDisabled }

// FrameInterval implements FrameSource.
func (*Capture) FrameInterval() (float64, error) { return 0, ErrOpenCVDisabled }

// Close implements FrameSource.
func (*Capture) Close() error { return nil }
