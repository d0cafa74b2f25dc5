//go:build opencv
// +build opencv

package video

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"
)

// Capture decodes a video file with OpenCV.
type Capture struct {
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	gray   gocv.Mat
	fps    float64
	closed bool
}

// OpenCapture opens a video file. A positive fps overrides the container's
// reported frame rate.
func OpenCapture(path string, fps float64) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %s: not readable", path)
	}
	if fps <= 0 {
		fps = vc.Get(gocv.VideoCaptureFPS)
	}
	return &Capture{
		vc:    vc,
		frame: gocv.NewMat(),
		gray:  gocv.NewMat(),
		fps:   fps,
	}, nil
}

// Next implements FrameSource.
func (c *Capture) Next() (*image.Gray, error) {
	if c.closed {
		return nil, io.EOF
	}
	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, io.EOF
	}
	if c.frame.Channels() == 1 {
		c.frame.CopyTo(&c.gray)
	} else {
		gocv.CvtColor(c.frame, &c.gray, gocv.ColorBGRToGray)
	}
	img, err := c.gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("convert frame: unexpected %T", img)
	}
	return g, nil
}

// FrameInterval implements FrameSource.
func (c *Capture) FrameInterval() (float64, error) { return intervalFromFPS(c.fps) }

// Close implements FrameSource.
func (c *Capture) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.frame.Close()
	c.gray.Close()
	return c.vc.Close()
}
