// Package annotator renders landmark overlays and a status banner onto a copy
// of a frame. It is presentation only; classification never depends on it.
package annotator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"DrowsyGuard/pkg/classifier"
	"DrowsyGuard/pkg/landmark"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	PointColor   = color.NRGBA{R: 0, G: 200, B: 255, A: 255}
	OutlineColor = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	AlertColor   = color.NRGBA{R: 230, G: 30, B: 30, A: 255}
	NeutralColor = color.NRGBA{R: 30, G: 200, B: 60, A: 255}
	bannerColor  = color.NRGBA{R: 0, G: 0, B: 0, A: 180}
)

const (
	pointRadius  = 2
	bannerHeight = 40
	textMargin   = 8
)

// contours are closed polylines as [start, end) landmark index ranges.
var contours = [][2]int{
	{landmark.LeftEyeStart, landmark.LeftEyeStart + 6},
	{landmark.RightEyeStart, landmark.RightEyeStart + 6},
	{landmark.OuterLipStart, landmark.InnerLipStart},
	{landmark.InnerLipStart, landmark.NumLandmarks},
}

// Annotate returns a new image with every landmark marked, the eye and lip
// contours outlined and a banner showing status, EAR and yawn distance. frame
// is never modified. A set that is not 68 points long gets its points marked
// but no contours.
//
// set is in frame-relative coordinates, the space of vision.Grayscale: (0,0)
// is the top-left pixel of frame whatever frame.Bounds().Min is. The result
// has the same zero-origin space.
func Annotate(frame image.Image, set landmark.Set, m landmark.Metrics, status classifier.Status) *image.NRGBA {
	dst := imaging.Clone(frame)

	toPixel := func(p landmark.Point2D) image.Point {
		return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}

	if len(set) == landmark.NumLandmarks {
		for _, c := range contours {
			for i := c[0]; i < c[1]; i++ {
				next := i + 1
				if next == c[1] {
					next = c[0]
				}
				drawLine(dst, toPixel(set[i]), toPixel(set[next]), OutlineColor)
			}
		}
	}

	for _, p := range set {
		drawDot(dst, toPixel(p), pointRadius, PointColor)
	}

	drawBanner(dst, status, m)
	return dst
}

// StatusColor is the banner text colour for status.
func StatusColor(status classifier.Status) color.NRGBA {
	if status.IsAlert() {
		return AlertColor
	}
	return NeutralColor
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode annotated frame: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBanner(dst *image.NRGBA, status classifier.Status, m landmark.Metrics) {
	b := dst.Bounds()
	h := bannerHeight
	if b.Dy() < h {
		h = b.Dy()
	}
	draw.Draw(dst, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h), image.NewUniform(bannerColor), image.Point{}, draw.Over)

	lines := []string{status.String()}
	if status != classifier.StatusNoFace {
		lines = append(lines, fmt.Sprintf("EAR: %.2f  YAWN: %.2f", m.EAR, m.YawnDistance))
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(StatusColor(status)),
		Face: basicfont.Face7x13,
	}
	lineHeight := basicfont.Face7x13.Metrics().Height.Ceil()
	for i, line := range lines {
		d.Dot = fixed.P(b.Min.X+textMargin, b.Min.Y+textMargin+lineHeight*(i+1)-3)
		d.DrawString(line)
	}
}

func drawDot(dst *image.NRGBA, c image.Point, r int, col color.NRGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				setPixel(dst, c.X+dx, c.Y+dy, col)
			}
		}
	}
}

// drawLine uses Bresenham's algorithm. Segments with an endpoint far outside
// the frame are skipped.
func drawLine(dst *image.NRGBA, a, b image.Point, col color.NRGBA) {
	if !inReach(dst.Bounds(), a) || !inReach(dst.Bounds(), b) {
		return
	}
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		setPixel(dst, x, y, col)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func setPixel(dst *image.NRGBA, x, y int, col color.NRGBA) {
	if (image.Point{X: x, Y: y}).In(dst.Bounds()) {
		dst.SetNRGBA(x, y, col)
	}
}

func inReach(r image.Rectangle, p image.Point) bool {
	w, h := r.Dx(), r.Dy()
	return p.In(image.Rect(r.Min.X-w, r.Min.Y-h, r.Max.X+w, r.Max.Y+h))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
