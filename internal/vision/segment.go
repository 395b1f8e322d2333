// Package vision implements the image stages of hand detection: foreground
// segmentation, dominant contour selection and convexity defect analysis.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Strategy selects how a frame is turned into a foreground mask.
type Strategy string

const (
	// StrategySkin thresholds the frame against a fixed HSV skin colour range.
	StrategySkin Strategy = "skin"
	// StrategyIntensity blurs a grayscale crop and applies an inverted Otsu threshold.
	StrategyIntensity Strategy = "intensity"
)

// Default segmentation parameters.
const (
	DefaultSkinBlurKernel      = 5
	DefaultIntensityBlurKernel = 35
)

// Default inclusive skin range in OpenCV HSV units (H 0-180, S and V 0-255).
var (
	DefaultSkinLower = [3]float64{0, 30, 60}
	DefaultSkinUpper = [3]float64{20, 150, 255}
)

// SegmentParams configures Segment.
type SegmentParams struct {
	Strategy Strategy
	// ROI is the analyzed sub-rectangle of the frame. The zero rectangle means the whole frame.
	ROI image.Rectangle
	// BlurKernel is the Gaussian kernel size; it must be odd.
	BlurKernel int
	SkinLower  [3]float64
	SkinUpper  [3]float64
}

// Validate checks that the parameters describe a usable segmentation.
func (p SegmentParams) Validate() error {
	switch p.Strategy {
	case StrategySkin, StrategyIntensity:
	default:
		return fmt.Errorf("unknown segmentation strategy %q", p.Strategy)
	}
	if p.BlurKernel <= 0 || p.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", p.BlurKernel)
	}
	for i := range p.SkinLower {
		if p.SkinLower[i] > p.SkinUpper[i] {
			return fmt.Errorf("skin lower bound %v exceeds upper bound %v", p.SkinLower, p.SkinUpper)
		}
	}
	return nil
}

// Segment turns a BGR or BGRX frame into a single channel binary mask covering
// the region of interest. The caller owns the returned Mat and must Close it.
// A region of interest outside the frame yields an empty mask.
func Segment(frame gocv.Mat, p SegmentParams) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("segment: empty frame")
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	roi := bounds
	if !p.ROI.Empty() {
		roi = p.ROI.Intersect(bounds)
	}
	if roi.Empty() {
		return gocv.NewMat(), nil
	}

	region := frame.Region(roi)
	defer region.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	switch region.Channels() {
	case 4:
		gocv.CvtColor(region, &bgr, gocv.ColorBGRAToBGR)
	case 3:
		region.CopyTo(&bgr)
	case 1:
		gocv.CvtColor(region, &bgr, gocv.ColorGrayToBGR)
	default:
		return gocv.NewMat(), fmt.Errorf("segment: unsupported channel count %d", region.Channels())
	}

	switch p.Strategy {
	case StrategySkin:
		return segmentSkin(bgr, p), nil
	case StrategyIntensity:
		return segmentIntensity(bgr, p), nil
	default:
		return gocv.NewMat(), fmt.Errorf("segment: unknown strategy %q", p.Strategy)
	}
}

// segmentSkin keeps pixels inside the HSV skin range and smooths the result
// to remove speckle noise.
func segmentSkin(bgr gocv.Mat, p SegmentParams) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	inRange := gocv.NewMat()
	defer inRange.Close()
	lower := gocv.NewScalar(p.SkinLower[0], p.SkinLower[1], p.SkinLower[2], 0)
	upper := gocv.NewScalar(p.SkinUpper[0], p.SkinUpper[1], p.SkinUpper[2], 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &inRange)

	mask := gocv.NewMat()
	gocv.GaussianBlur(inRange, &mask, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)
	return mask
}

// segmentIntensity separates a dark hand from a brighter background. The
// threshold polarity is inverted so the foreground ends up at 255.
func segmentIntensity(bgr gocv.Mat, p SegmentParams) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	gocv.Threshold(blurred, &mask, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)
	return mask
}
