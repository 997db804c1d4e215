package landmark

import "math"

// Metrics are the two per-frame signals fed to the classifier.
type Metrics struct {
	EAR          float64 `json:"ear"`
	YawnDistance float64 `json:"yawn_distance"`
}

// EyeAspectRatio is (|p1-p5| + |p2-p4|) / (2|p0-p3|). Smaller means a more
// closed eye. A zero eye width is not special-cased and yields +Inf or NaN.
func EyeAspectRatio(eye Eye) float64 {
	vertical := Distance(eye[1], eye[5]) + Distance(eye[2], eye[4])
	width := Distance(eye[0], eye[3])
	return vertical / (2 * width)
}

func AverageEyeAspectRatio(left, right Eye) float64 {
	return (EyeAspectRatio(left) + EyeAspectRatio(right)) / 2
}

// YawnDistance is the vertical gap between the mean points of the top and
// bottom lip clusters. Horizontal offsets are ignored on purpose.
func YawnDistance(top, bottom []Point2D) float64 {
	return math.Abs(Mean(top).Y - Mean(bottom).Y)
}

func ComputeMetrics(r Regions) Metrics {
	return Metrics{
		EAR:          AverageEyeAspectRatio(r.LeftEye, r.RightEye),
		YawnDistance: YawnDistance(r.Mouth.Top, r.Mouth.Bottom),
	}
}
