package motion

import (
	"image"

	"github.com/disintegration/gift"
)

// Native is the pure Go detector. The morphology chain is built once and
// reused for every frame pair.
type Native struct {
	params Params
	morph  *gift.GIFT
}

// NewNative builds a detector from p.
func NewNative(p Params) *Native {
	k, disk := p.KernelSize, p.KernelDisk
	return &Native{
		params: p,
		// Closing (dilate, erode) then opening (erode, dilate).
		morph: gift.New(
			gift.Maximum(k, disk),
			gift.Minimum(k, disk),
			gift.Minimum(k, disk),
			gift.Maximum(k, disk),
		),
	}
}

// Params returns the detector configuration.
func (d *Native) Params() Params { return d.params }

// Detect implements Detector.
func (d *Native) Detect(prev, cur *image.Gray) (*Detection, error) {
	if err := checkFrames(prev, cur); err != nil {
		return nil, err
	}
	mask := d.Mask(prev, cur)

	var best *region
	for _, r := range outerRegions(mask) {
		if r.area <= d.params.MinAreaPixels {
			continue
		}
		// Strictly greater keeps the first region in scan order on ties.
		if best == nil || r.area > best.area {
			rr := r
			best = &rr
		}
	}
	if best == nil {
		return nil, nil
	}
	return newDetection(best.box.Add(cur.Bounds().Min), best.area), nil
}

// Mask returns the cleaned binary motion mask (0 or 255) for a frame pair.
// The mask is anchored at the origin. Frames must share bounds.
func (d *Native) Mask(prev, cur *image.Gray) *image.Gray {
	raw := thresholdDiff(prev, cur, d.params.Threshold)
	out := image.NewGray(d.morph.Bounds(raw.Bounds()))
	d.morph.Draw(out, raw)
	return out
}

// thresholdDiff computes |cur - prev| > threshold as a 0/255 mask.
func thresholdDiff(prev, cur *image.Gray, threshold uint8) *image.Gray {
	b := cur.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		po := prev.PixOffset(b.Min.X, b.Min.Y+y)
		co := cur.PixOffset(b.Min.X, b.Min.Y+y)
		oo := out.PixOffset(0, y)
		for x := 0; x < b.Dx(); x++ {
			p, c := prev.Pix[po+x], cur.Pix[co+x]
			diff := c - p
			if p > c {
				diff = p - c
			}
			if diff > threshold {
				out.Pix[oo+x] = 255
			}
		}
	}
	return out
}
