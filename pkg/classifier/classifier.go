// Package classifier maps landmark metrics and a face count to a frame status.
package classifier

import "DrowsyGuard/pkg/landmark"

const (
	DefaultEyeAspectRatioThreshold = 0.3
	DefaultYawnDistanceThreshold   = 20
)

// Thresholds are fixed for the life of the process.
type Thresholds struct {
	// EyeAspectRatio below which the eyes count as closed.
	EyeAspectRatio float64 `validate:"gt=0,lte=1"`
	// YawnDistance in pixels above which the mouth counts as open.
	YawnDistance float64 `validate:"gt=0,lt=10000"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		EyeAspectRatio: DefaultEyeAspectRatioThreshold,
		YawnDistance:   DefaultYawnDistanceThreshold,
	}
}

// Classify applies the rules in priority order: no face, closed eyes, open
// mouth, normal. Eye closure wins when both conditions hold. With faceCount 0
// the metrics are ignored.
func Classify(faceCount int, m landmark.Metrics, t Thresholds) Result {
	switch {
	case faceCount <= 0:
		return NoFaceDetected{}
	case m.EAR < t.EyeAspectRatio:
		return DrowsinessDetected{EAR: m.EAR, YawnDistance: m.YawnDistance, Threshold: t.EyeAspectRatio}
	case m.YawnDistance > t.YawnDistance:
		return YawningDetected{EAR: m.EAR, YawnDistance: m.YawnDistance, Threshold: t.YawnDistance}
	default:
		return Normal{EAR: m.EAR, YawnDistance: m.YawnDistance, FaceCount: faceCount}
	}
}

// MetricsOf returns the metrics carried by r; ok is false for NoFaceDetected.
func MetricsOf(r Result) (m landmark.Metrics, ok bool) {
	switch v := r.(type) {
	case Normal:
		return landmark.Metrics{EAR: v.EAR, YawnDistance: v.YawnDistance}, true
	case DrowsinessDetected:
		return landmark.Metrics{EAR: v.EAR, YawnDistance: v.YawnDistance}, true
	case YawningDetected:
		return landmark.Metrics{EAR: v.EAR, YawnDistance: v.YawnDistance}, true
	default:
		return landmark.Metrics{}, false
	}
}
