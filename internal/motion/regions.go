package motion

import "image"

type region struct {
	box  image.Rectangle
	area int
}

// outerRegions labels 8-connected foreground regions of mask in raster scan
// order. A pixel is foreground when its value is at least 128.
func outerRegions(mask *image.Gray) []region {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	seen := make([]bool, w*h)
	fg := func(x, y int) bool {
		return mask.Pix[mask.PixOffset(b.Min.X+x, b.Min.Y+y)] >= 128
	}

	var regions []region
	var stack []image.Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if seen[y*w+x] || !fg(x, y) {
				continue
			}
			seen[y*w+x] = true
			stack = append(stack[:0], image.Pt(x, y))
			r := region{box: image.Rect(x, y, x+1, y+1)}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r.area++
				r.box = r.box.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if seen[ny*w+nx] || !fg(nx, ny) {
							continue
						}
						seen[ny*w+nx] = true
						stack = append(stack, image.Pt(nx, ny))
					}
				}
			}
			regions = append(regions, r)
		}
	}
	return regions
}
