package video

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/gift"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
)

var frameExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// ImageSequence plays the still images of a directory in lexical order.
type ImageSequence struct {
	fs     fsutil.FileSystem
	dir    string
	files  []string
	fps    float64
	next   int
	bounds image.Rectangle
	gray   *gift.GIFT
}

// OpenImageSequence lists the frames in dir. Non-image files are ignored.
func OpenImageSequence(fsys fsutil.FileSystem, dir string, fps float64) (*ImageSequence, error) {
	if _, err := intervalFromFPS(fps); err != nil {
		return nil, err
	}
	names, err := fsys.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames in %s: %w", dir, err)
	}
	var files []string
	for _, n := range names {
		if frameExtensions[strings.ToLower(filepath.Ext(n))] {
			files = append(files, n)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no png or jpeg frames in %s", dir)
	}
	return &ImageSequence{
		fs:    fsys,
		dir:   dir,
		files: files,
		fps:   fps,
		gray:  gift.New(gift.Grayscale()),
	}, nil
}

// Len returns the number of frames in the sequence.
func (s *ImageSequence) Len() int { return len(s.files) }

// Next implements FrameSource.
func (s *ImageSequence) Next() (*image.Gray, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	name := filepath.Join(s.dir, s.files[s.next])
	s.next++

	img, err := s.decode(name)
	if err != nil {
		return nil, err
	}
	if s.bounds.Empty() {
		s.bounds = img.Bounds()
	} else if img.Bounds() != s.bounds {
		return nil, fmt.Errorf("%w: %s is %v, expected %v", ErrFrameSize, name, img.Bounds(), s.bounds)
	}
	return img, nil
}

func (s *ImageSequence) decode(name string) (*image.Gray, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", name, err)
	}
	if g, ok := src.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g, nil
	}
	dst := image.NewGray(s.gray.Bounds(src.Bounds()))
	s.gray.Draw(dst, src)
	return dst, nil
}

// FrameInterval implements FrameSource.
func (s *ImageSequence) FrameInterval() (float64, error) { return intervalFromFPS(s.fps) }

// Close implements FrameSource.
func (s *ImageSequence) Close() error {
	s.next = len(s.files)
	return nil
}
