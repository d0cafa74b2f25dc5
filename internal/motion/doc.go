// Package motion locates a single moving object by differencing consecutive
// greyscale frames.
//
// Responsibilities:
//   - absolute difference and binary threshold of two frames
//   - morphological closing then opening of the motion mask
//   - extraction of outer connected regions and selection of the largest
//   - bounding box and centroid of the selected region
//
// Two backends implement Detector: Native (pure Go, morphology via gift) and
// OpenCV (gocv, built only with -tags=opencv).
package motion
