package motion

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajectory.report/internal/testutil"
)

const (
	frameW = 64
	frameH = 48
)

func TestNative_IdenticalFramesYieldNothing(t *testing.T) {
	t.Parallel()
	d := NewNative(DefaultParams())
	frame := testutil.FrameWithRect(frameW, frameH, image.Rect(10, 10, 30, 30), 200)

	det, err := d.Detect(frame, frame)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestNative_AppearingRectangle(t *testing.T) {
	t.Parallel()
	d := NewNative(DefaultParams())
	rect := image.Rect(10, 12, 30, 28)
	prev := testutil.GrayFrame(frameW, frameH, 0)
	cur := testutil.FrameWithRect(frameW, frameH, rect, 200)

	det, err := d.Detect(prev, cur)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.InDelta(t, rect.Min.X, det.Box.Min.X, 1)
	assert.InDelta(t, rect.Min.Y, det.Box.Min.Y, 1)
	assert.InDelta(t, rect.Max.X, det.Box.Max.X, 1)
	assert.InDelta(t, rect.Max.Y, det.Box.Max.Y, 1)
	assert.Equal(t, image.Pt(det.Box.Min.X+det.Box.Dx()/2, det.Box.Min.Y+det.Box.Dy()/2), det.Centroid)
	// The disk element trims the four corner pixels.
	assert.Equal(t, rect.Dx()*rect.Dy()-4, det.AreaPixels)
}

func TestNative_ShiftedRectangleTieKeepsScanOrder(t *testing.T) {
	t.Parallel()
	d := NewNative(DefaultParams())
	left := image.Rect(5, 10, 15, 20)
	right := image.Rect(30, 10, 40, 20)
	prev := testutil.FrameWithRect(frameW, frameH, left, 180)
	cur := testutil.FrameWithRect(frameW, frameH, right, 180)

	det, err := d.Detect(prev, cur)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, left, det.Box)
}

// A rectangle moving less than its own width leaves two equal strips in the
// difference mask: the exposed trailing edge and the new leading edge. The
// overlap does not change, so the box covers one strip, never the rectangle.
func TestNative_PartialShiftYieldsTrailingStrip(t *testing.T) {
	t.Parallel()
	d := NewNative(DefaultParams())
	before := image.Rect(10, 10, 30, 20)
	after := before.Add(image.Pt(6, 0))
	prev := testutil.FrameWithRect(frameW, frameH, before, 200)
	cur := testutil.FrameWithRect(frameW, frameH, after, 200)

	regions := outerRegions(d.Mask(prev, cur))
	require.Len(t, regions, 2)
	assert.Equal(t, regions[0].area, regions[1].area)

	det, err := d.Detect(prev, cur)
	require.NoError(t, err)
	require.NotNil(t, det)
	// Equal areas resolve to the trailing strip, first in scan order.
	assert.InDelta(t, before.Min.X, det.Box.Min.X, 1)
	assert.InDelta(t, after.Min.X, det.Box.Max.X, 1)
	assert.InDelta(t, before.Min.Y, det.Box.Min.Y, 1)
	assert.InDelta(t, before.Max.Y, det.Box.Max.Y, 1)
	assert.Less(t, det.Box.Dx(), before.Dx())
}

func TestNative_LargestRegionWins(t *testing.T) {
	t.Parallel()
	d := NewNative(DefaultParams())
	small := image.Rect(2, 2, 9, 9)
	large := image.Rect(20, 20, 40, 40)
	prev := testutil.GrayFrame(frameW, frameH, 0)
	cur := testutil.GrayFrame(frameW, frameH, 0)
	testutil.FillRect(cur, small, 255)
	testutil.FillRect(cur, large, 255)

	det, err := d.Detect(prev, cur)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, large, det.Box)
	assert.Equal(t, image.Pt(30, 30), det.Centroid)
}

func TestNative_MinArea(t *testing.T) {
	t.Parallel()
	prev := testutil.GrayFrame(frameW, frameH, 0)
	cur := testutil.FrameWithRect(frameW, frameH, image.Rect(10, 10, 14, 14), 255)

	det, err := NewNative(DefaultParams()).Detect(prev, cur)
	require.NoError(t, err)
	assert.Nil(t, det, "12 px region must not pass a 20 px minimum")

	p := DefaultParams()
	p.MinAreaPixels = 5
	det, err = NewNative(p).Detect(prev, cur)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, 12, det.AreaPixels)
}

func TestNative_SinglePixelNoiseRemoved(t *testing.T) {
	t.Parallel()
	prev := testutil.GrayFrame(frameW, frameH, 50)
	cur := testutil.GrayFrame(frameW, frameH, 50)
	cur.Pix[cur.PixOffset(20, 20)] = 255
	cur.Pix[cur.PixOffset(40, 5)] = 0

	det, err := NewNative(DefaultParams()).Detect(prev, cur)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestNative_ThresholdIsStrict(t *testing.T) {
	t.Parallel()
	rect := image.Rect(10, 10, 30, 30)
	prev := testutil.GrayFrame(frameW, frameH, 100)

	tests := []struct {
		name  string
		level uint8
		found bool
	}{
		{"difference equal to threshold", 110, false},
		{"difference above threshold", 111, true},
		{"darker object above threshold", 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := testutil.GrayFrame(frameW, frameH, 100)
			testutil.FillRect(cur, rect, tt.level)
			det, err := NewNative(DefaultParams()).Detect(prev, cur)
			require.NoError(t, err)
			assert.Equal(t, tt.found, det != nil)
		})
	}
}

func TestNative_OffsetBounds(t *testing.T) {
	t.Parallel()
	region := image.Rect(100, 100, 100+frameW, 100+frameH)
	prevBig := testutil.GrayFrame(300, 300, 0)
	curBig := testutil.GrayFrame(300, 300, 0)
	rect := image.Rect(110, 112, 130, 128)
	testutil.FillRect(curBig, rect, 255)

	prev := prevBig.SubImage(region).(*image.Gray)
	cur := curBig.SubImage(region).(*image.Gray)

	det, err := NewNative(DefaultParams()).Detect(prev, cur)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, rect, det.Box)
}

func TestNative_FrameMismatch(t *testing.T) {
	t.Parallel()
	d := NewNative(DefaultParams())
	_, err := d.Detect(testutil.GrayFrame(10, 10, 0), testutil.GrayFrame(12, 10, 0))
	assert.ErrorIs(t, err, ErrFrameMismatch)

	_, err = d.Detect(nil, testutil.GrayFrame(10, 10, 0))
	assert.ErrorIs(t, err, ErrFrameMismatch)
}

func TestNative_MaskIsBinary(t *testing.T) {
	t.Parallel()
	prev := testutil.GrayFrame(frameW, frameH, 0)
	cur := testutil.FrameWithRect(frameW, frameH, image.Rect(5, 5, 25, 25), 90)

	mask := NewNative(DefaultParams()).Mask(prev, cur)
	for _, v := range mask.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("mask value %d is not binary", v)
		}
	}
	assert.EqualValues(t, 255, mask.GrayAt(15, 15).Y)
	assert.EqualValues(t, 0, mask.GrayAt(40, 40).Y)
}

func TestOuterRegions_EightConnected(t *testing.T) {
	t.Parallel()
	mask := testutil.GrayFrame(6, 6, 0)
	// Diagonal chain joins into one region.
	for i := 0; i < 4; i++ {
		mask.Pix[mask.PixOffset(i, i)] = 255
	}
	mask.Pix[mask.PixOffset(5, 0)] = 255

	regions := outerRegions(mask)
	require.Len(t, regions, 2)
	assert.Equal(t, image.Rect(0, 0, 4, 4), regions[0].box)
	assert.Equal(t, 4, regions[0].area)
	assert.Equal(t, image.Rect(5, 0, 6, 1), regions[1].box)
}

func TestNew(t *testing.T) {
	t.Parallel()
	d, err := New(BackendNative, DefaultParams())
	require.NoError(t, err)
	assert.IsType(t, &Native{}, d)

	d, err = New("", DefaultParams())
	require.NoError(t, err)
	assert.IsType(t, &Native{}, d)

	_, err = New("cuda", DefaultParams())
	assert.Error(t, err)
}
