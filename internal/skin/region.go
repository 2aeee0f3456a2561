package skin

import "image"

// region summarises one 8-connected component of the mask.
type region struct {
	pixels int
	top    image.Point
}

// largestRegion flood-fills the mask and returns the component with the most
// pixels among those larger than minPixels. Seeds are taken from the interior
// (one pixel in from every border); fills may extend to the border.
//
// The topmost pixel of a region is the one with the smallest y, then the
// smallest x.
func largestRegion(mask []uint8, width, height, minPixels int) (region, bool) {
	if width < 3 || height < 3 || len(mask) < width*height {
		return region{}, false
	}

	visited := make([]bool, width*height)
	stack := make([]int, 0, 1024)

	var best region
	found := false

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			seed := y*width + x
			if mask[seed] != 255 || visited[seed] {
				continue
			}

			cur := region{top: image.Point{X: x, Y: y}}
			visited[seed] = true
			stack = append(stack[:0], seed)

			for len(stack) > 0 {
				idx := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				px, py := idx%width, idx/width
				cur.pixels++
				if py < cur.top.Y || (py == cur.top.Y && px < cur.top.X) {
					cur.top = image.Point{X: px, Y: py}
				}

				for dy := -1; dy <= 1; dy++ {
					ny := py + dy
					if ny < 0 || ny >= height {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						nx := px + dx
						if (dx == 0 && dy == 0) || nx < 0 || nx >= width {
							continue
						}
						n := ny*width + nx
						if visited[n] || mask[n] != 255 {
							continue
						}
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}

			if cur.pixels <= minPixels {
				continue
			}
			if !found || cur.pixels > best.pixels {
				best = cur
				found = true
			}
		}
	}

	return best, found
}
