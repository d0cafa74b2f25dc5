//go:build opencv
// +build opencv

package motion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCV detects motion with gocv. Contour area follows OpenCV's polygon
// area, which is slightly smaller than the pixel count Native reports.
type OpenCV struct {
	params Params
	kernel gocv.Mat
}

// NewOpenCV builds an OpenCV-backed detector. Close releases the kernel.
func NewOpenCV(p Params) (*OpenCV, error) {
	shape := gocv.MorphRect
	if p.KernelDisk {
		shape = gocv.MorphEllipse
	}
	return &OpenCV{
		params: p,
		kernel: gocv.GetStructuringElement(shape, image.Pt(p.KernelSize, p.KernelSize)),
	}, nil
}

// Close releases native resources.
func (d *OpenCV) Close() error {
	return d.kernel.Close()
}

// Detect implements Detector.
func (d *OpenCV) Detect(prev, cur *image.Gray) (*Detection, error) {
	if err := checkFrames(prev, cur); err != nil {
		return nil, err
	}
	prevMat, err := gocv.ImageGrayToMatGray(prev)
	if err != nil {
		return nil, fmt.Errorf("convert previous frame: %w", err)
	}
	defer prevMat.Close()
	curMat, err := gocv.ImageGrayToMatGray(cur)
	if err != nil {
		return nil, fmt.Errorf("convert current frame: %w", err)
	}
	defer curMat.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(prevMat, curMat, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, float32(d.params.Threshold), 255, gocv.ThresholdBinary)
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, d.kernel)
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, d.kernel)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area <= float64(d.params.MinAreaPixels) {
			continue
		}
		if best < 0 || area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil, nil
	}
	box := gocv.BoundingRect(contours.At(best))
	return newDetection(box.Add(cur.Bounds().Min), int(bestArea)), nil
}
