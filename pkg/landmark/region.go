package landmark

import (
	"errors"
	"fmt"
)

// Landmark indices of the iBUG 300-W 68-point scheme, 0-based.
const (
	NumLandmarks = 68

	LeftEyeStart  = 36
	RightEyeStart = 42
	OuterLipStart = 48
	InnerLipStart = 60

	eyeLen = 6
)

var ErrInvalidLandmarkCount = errors.New("invalid landmark count")

// Set is an ordered 68-point landmark set for one face.
type Set []Point2D

// Eye holds the six contour points of one eye in extraction order: the two
// corners are p0 and p3, p1/p2 lie on the upper lid and p4/p5 on the lower lid.
type Eye [eyeLen]Point2D

// Mouth holds the lip clusters used to measure vertical mouth opening.
type Mouth struct {
	Top    []Point2D
	Bottom []Point2D
}

// Regions are the named anatomical subsets of a Set.
type Regions struct {
	LeftEye  Eye
	RightEye Eye
	Mouth    Mouth
}

// Validate reports ErrInvalidLandmarkCount unless s has exactly 68 points.
func (s Set) Validate() error {
	if len(s) != NumLandmarks {
		return fmt.Errorf("%w: got %d points, want %d", ErrInvalidLandmarkCount, len(s), NumLandmarks)
	}
	return nil
}

// ExtractRegions slices s into both eyes and the top/bottom lip clusters.
//
// Top lip is outer points 50-52 followed by inner points 61-63; bottom lip is
// outer points 56-58 followed by inner points 65-67.
func ExtractRegions(s Set) (Regions, error) {
	if err := s.Validate(); err != nil {
		return Regions{}, err
	}

	var r Regions
	copy(r.LeftEye[:], s[LeftEyeStart:LeftEyeStart+eyeLen])
	copy(r.RightEye[:], s[RightEyeStart:RightEyeStart+eyeLen])

	r.Mouth.Top = concat(s[50:53], s[61:64])
	r.Mouth.Bottom = concat(s[56:59], s[65:68])

	return r, nil
}

func concat(a, b []Point2D) []Point2D {
	out := make([]Point2D, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
