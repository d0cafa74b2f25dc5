package video

import (
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/testutil"
)

func seedFrames(t *testing.T, fsys *fsutil.MemoryFileSystem, dir string, frames map[string]image.Image) {
	t.Helper()
	for name, img := range frames {
		require.NoError(t, fsys.WriteFile(filepath.Join(dir, name), testutil.EncodePNG(t, img), 0o644))
	}
}

func TestImageSequence_LexicalOrder(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	seedFrames(t, fsys, "clip", map[string]image.Image{
		"frame_002.png": testutil.GrayFrame(8, 6, 20),
		"frame_000.png": testutil.GrayFrame(8, 6, 0),
		"frame_001.png": testutil.GrayFrame(8, 6, 10),
	})
	require.NoError(t, fsys.WriteFile("clip/notes.txt", []byte("ignored"), 0o644))

	seq, err := OpenImageSequence(fsys, "clip", 25)
	require.NoError(t, err)
	defer seq.Close()
	assert.Equal(t, 3, seq.Len())

	dt, err := seq.FrameInterval()
	require.NoError(t, err)
	assert.InDelta(t, 0.04, dt, 1e-12)

	for _, want := range []uint8{0, 10, 20} {
		f, err := seq.Next()
		require.NoError(t, err)
		assert.Equal(t, want, f.GrayAt(3, 3).Y)
	}
	_, err = seq.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestImageSequence_ConvertsColour(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range rgba.Pix {
		rgba.Pix[i] = 255
	}
	rgba.Set(1, 1, color.RGBA{A: 255})
	seedFrames(t, fsys, "rgb", map[string]image.Image{"0.png": rgba})

	seq, err := OpenImageSequence(fsys, "rgb", 30)
	require.NoError(t, err)
	f, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), f.Bounds())
	assert.InDelta(t, 255, float64(f.GrayAt(0, 0).Y), 1)
	assert.EqualValues(t, 0, f.GrayAt(1, 1).Y)
}

func TestImageSequence_SizeChange(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	seedFrames(t, fsys, "bad", map[string]image.Image{
		"a.png": testutil.GrayFrame(8, 6, 0),
		"b.png": testutil.GrayFrame(9, 6, 0),
	})
	seq, err := OpenImageSequence(fsys, "bad", 30)
	require.NoError(t, err)
	_, err = seq.Next()
	require.NoError(t, err)
	_, err = seq.Next()
	assert.ErrorIs(t, err, ErrFrameSize)
}

func TestImageSequence_OpenErrors(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("empty", 0o755))

	_, err := OpenImageSequence(fsys, "empty", 30)
	assert.Error(t, err)

	_, err = OpenImageSequence(fsys, "missing", 30)
	assert.Error(t, err)

	_, err = OpenImageSequence(fsys, "empty", 0)
	assert.ErrorIs(t, err, ErrInvalidFrameRate)
}

func TestImageSequence_CloseEndsStream(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	seedFrames(t, fsys, "c", map[string]image.Image{"0.png": testutil.GrayFrame(2, 2, 0)})
	seq, err := OpenImageSequence(fsys, "c", 30)
	require.NoError(t, err)
	require.NoError(t, seq.Close())
	_, err = seq.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSlice(t *testing.T) {
	t.Parallel()
	frames := []*image.Gray{testutil.GrayFrame(2, 2, 1), testutil.GrayFrame(2, 2, 2)}
	s := NewSlice(frames, 30)

	f, err := s.Next()
	require.NoError(t, err)
	assert.Same(t, frames[0], f)
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)

	_, err = NewSlice(nil, 0).FrameInterval()
	assert.ErrorIs(t, err, ErrInvalidFrameRate)
}

func TestOpen_Directory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var fsys fsutil.OSFileSystem
	w, err := fsys.Create(filepath.Join(dir, "000.png"))
	require.NoError(t, err)
	_, err = w.Write(testutil.EncodePNG(t, testutil.GrayFrame(3, 3, 7)))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	src, err := Open(dir, 12)
	require.NoError(t, err)
	defer src.Close()
	f, err := src.Next()
	require.NoError(t, err)
	assert.EqualValues(t, 7, f.GrayAt(1, 1).Y)

	_, err = Open(filepath.Join(dir, "missing"), 12)
	assert.Error(t, err)
}
