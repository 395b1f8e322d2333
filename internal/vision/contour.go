package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// Contour is the boundary of a connected foreground region.
type Contour struct {
	Points []image.Point
	// Area is the absolute polygon area enclosed by Points.
	Area float64
}

// SelectContour extracts every contour of the mask and returns the one with
// the largest area. selected is false when the mask has no contours or when
// the largest one encloses less than minArea; largest is still returned in the
// second case so callers can report its area. A contour of exactly minArea is
// selected.
func SelectContour(mask gocv.Mat, minArea float64) (largest *Contour, selected bool) {
	largest = largestContour(mask)
	if largest == nil {
		return nil, false
	}
	return largest, largest.Area >= minArea
}

func largestContour(mask gocv.Mat) *Contour {
	if mask.Empty() {
		return nil
	}

	contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var best *Contour
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if best == nil || area > best.Area {
			best = &Contour{Points: contour.ToPoints(), Area: area}
		}
	}

	return best
}
