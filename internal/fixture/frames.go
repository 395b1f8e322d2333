// Package fixture draws synthetic camera frames and hand outlines for tests.
package fixture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame dimensions used by the source camera configuration.
const (
	Width  = 320
	Height = 240
)

// Colours in RGB. SkinColour falls inside the default HSV skin range.
var (
	SkinColour  = color.RGBA{R: 220, G: 150, B: 120, A: 0}
	DarkColour  = color.RGBA{R: 40, G: 40, B: 40, A: 0}
	LightColour = color.RGBA{R: 230, G: 230, B: 230, A: 0}
	Black       = color.RGBA{}
)

// OpenHandOutline returns a five fingered hand silhouette. Fingertips follow
// an arc so that every gap between neighbouring fingers lies under its own
// convex hull edge.
func OpenHandOutline() []image.Point {
	return []image.Point{
		{100, 220},
		{100, 75}, {116, 75}, {116, 140},
		{126, 140}, {126, 55}, {142, 55}, {142, 140},
		{152, 140}, {152, 50}, {168, 50}, {168, 140},
		{178, 140}, {178, 55}, {194, 55}, {194, 140},
		{204, 140}, {204, 75}, {220, 75},
		{220, 220},
	}
}

// FistOutline returns a convex square blob.
func FistOutline() []image.Point {
	return []image.Point{{110, 110}, {110, 210}, {210, 210}, {210, 110}}
}

// Scale shrinks or grows an outline around origin.
func Scale(outline []image.Point, factor float64, origin image.Point) []image.Point {
	scaled := make([]image.Point, len(outline))
	for i, p := range outline {
		scaled[i] = image.Point{
			X: origin.X + int(float64(p.X-origin.X)*factor),
			Y: origin.Y + int(float64(p.Y-origin.Y)*factor),
		}
	}
	return scaled
}

// SkinFrame draws the outline in skin colour on a black background.
// The caller must Close the returned Mat.
func SkinFrame(outline []image.Point) gocv.Mat {
	return Draw(Black, SkinColour, outline)
}

// DarkHandFrame draws the outline as a dark shape on a bright background,
// the scene the intensity strategy expects.
func DarkHandFrame(outline []image.Point) gocv.Mat {
	return Draw(LightColour, DarkColour, outline)
}

// Draw fills outline with fg over a Width x Height BGR frame of colour bg.
// An empty outline yields a uniform frame.
func Draw(bg, fg color.RGBA, outline []image.Point) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(bg.B), float64(bg.G), float64(bg.R), 0),
		Height, Width, gocv.MatTypeCV8UC3,
	)
	if len(outline) == 0 {
		return frame
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{outline})
	defer pts.Close()
	gocv.FillPoly(&frame, pts, fg)
	return frame
}

// Mask draws the outline at 255 on a single channel zero mask.
func Mask(outline []image.Point) gocv.Mat {
	mask := gocv.NewMatWithSize(Height, Width, gocv.MatTypeCV8U)
	mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
	if len(outline) == 0 {
		return mask
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{outline})
	defer pts.Close()
	gocv.FillPoly(&mask, pts, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return mask
}
