// Package video supplies greyscale frames to the tracker.
//
// A FrameSource yields frames in order and reports io.EOF once exhausted.
// ImageSequence reads numbered still images from a directory; Capture decodes
// video files through OpenCV and is only available with -tags=opencv.
package video

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
)

var (
	// ErrInvalidFrameRate is returned when a source has no positive frame rate.
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
	// ErrFrameSize is returned when a frame's bounds differ from the first frame.
	ErrFrameSize = errors.New("frame size changed mid-stream")
	// ErrOpenCVDisabled is returned by Capture in builds without the opencv tag.
	ErrOpenCVDisabled = errors.New("OpenCV support not enabled: rebuild with -tags=opencv to read video files")
)

// FrameSource is a finite, ordered stream of greyscale frames.
type FrameSource interface {
	// Next returns the next frame, or io.EOF when the stream is exhausted.
	// Returned frames must not be modified by the caller.
	Next() (*image.Gray, error)
	// FrameInterval returns the time between frames in seconds.
	FrameInterval() (float64, error)
	// Close releases the source. It is safe to call more than once.
	Close() error
}

// intervalFromFPS converts a frame rate to a frame interval.
func intervalFromFPS(fps float64) (float64, error) {
	if !(fps > 0) || math.IsInf(fps, 0) {
		return 0, fmt.Errorf("%w: got %v fps", ErrInvalidFrameRate, fps)
	}
	return 1 / fps, nil
}

// Open picks a source for path: a directory becomes an ImageSequence played
// at fps, anything else is opened as a video file. A positive fps overrides
// the rate a video file reports.
func Open(path string, fps float64) (FrameSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	if info.IsDir() {
		return OpenImageSequence(fsutil.OSFileSystem{}, path, fps)
	}
	c, err := OpenCapture(path, fps)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Slice replays frames held in memory.
type Slice struct {
	frames []*image.Gray
	fps    float64
	next   int
	closed bool
}

// NewSlice returns a source over frames at fps.
func NewSlice(frames []*image.Gray, fps float64) *Slice {
	return &Slice{frames: frames, fps: fps}
}

// Next implements FrameSource.
func (s *Slice) Next() (*image.Gray, error) {
	if s.closed || s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// FrameInterval implements FrameSource.
func (s *Slice) FrameInterval() (float64, error) { return intervalFromFPS(s.fps) }

// Close implements FrameSource.
func (s *Slice) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Slice) Closed() bool { return s.closed }
