package testutil

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

func TestNewTestRequestAndRecorder(t *testing.T) {
	t.Parallel()
	req := NewTestRequest(http.MethodGet, "/api/snapshot")
	assert.Equal(t, "/api/snapshot", req.URL.Path)
	rec := NewTestRecorder()
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestFrameWithRect(t *testing.T) {
	t.Parallel()
	img := FrameWithRect(20, 10, image.Rect(2, 3, 6, 5), 200)

	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	assert.EqualValues(t, 200, img.GrayAt(2, 3).Y)
	assert.EqualValues(t, 200, img.GrayAt(5, 4).Y)
	assert.EqualValues(t, 0, img.GrayAt(6, 4).Y)
	assert.EqualValues(t, 0, img.GrayAt(1, 3).Y)
}

func TestFillRect_Clips(t *testing.T) {
	t.Parallel()
	img := GrayFrame(4, 4, 7)
	FillRect(img, image.Rect(-5, -5, 2, 2), 9)
	assert.EqualValues(t, 9, img.GrayAt(0, 0).Y)
	assert.EqualValues(t, 7, img.GrayAt(3, 3).Y)
}

func TestEncodePNG(t *testing.T) {
	t.Parallel()
	img := GrayFrame(3, 2, 128)
	decoded, err := png.Decode(bytes.NewReader(EncodePNG(t, img)))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
