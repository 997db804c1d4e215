package classifier

import (
	"math"
	"testing"

	"DrowsyGuard/pkg/landmark"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	th := Thresholds{EyeAspectRatio: 0.25, YawnDistance: 15}

	tests := []struct {
		name      string
		faceCount int
		metrics   landmark.Metrics
		th        Thresholds
		want      Result
	}{
		{
			name:      "open eyes closed mouth",
			faceCount: 1,
			metrics:   landmark.Metrics{EAR: 0.667, YawnDistance: 5},
			th:        th,
			want:      Normal{EAR: 0.667, YawnDistance: 5, FaceCount: 1},
		},
		{
			name:      "raised eye threshold",
			faceCount: 1,
			metrics:   landmark.Metrics{EAR: 0.667, YawnDistance: 5},
			th:        Thresholds{EyeAspectRatio: 0.9, YawnDistance: 15},
			want:      DrowsinessDetected{EAR: 0.667, YawnDistance: 5, Threshold: 0.9},
		},
		{
			name:      "yawning",
			faceCount: 2,
			metrics:   landmark.Metrics{EAR: 0.4, YawnDistance: 30},
			th:        th,
			want:      YawningDetected{EAR: 0.4, YawnDistance: 30, Threshold: 15},
		},
		{
			name:      "drowsiness wins over yawning",
			faceCount: 1,
			metrics:   landmark.Metrics{EAR: 0.1, YawnDistance: 30},
			th:        th,
			want:      DrowsinessDetected{EAR: 0.1, YawnDistance: 30, Threshold: 0.25},
		},
		{
			name:      "no face ignores metrics",
			faceCount: 0,
			metrics:   landmark.Metrics{EAR: 0.01, YawnDistance: 500},
			th:        th,
			want:      NoFaceDetected{},
		},
		{
			name:      "ear equal to threshold is open",
			faceCount: 1,
			metrics:   landmark.Metrics{EAR: 0.25, YawnDistance: 15},
			th:        th,
			want:      Normal{EAR: 0.25, YawnDistance: 15, FaceCount: 1},
		},
		{
			name:      "infinite ear counts as open",
			faceCount: 1,
			metrics:   landmark.Metrics{EAR: math.Inf(1), YawnDistance: 1},
			th:        th,
			want:      Normal{EAR: math.Inf(1), YawnDistance: 1, FaceCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.faceCount, tt.metrics, tt.th))
		})
	}
}

func TestClassify_NaNEarIsNotDrowsy(t *testing.T) {
	got := Classify(1, landmark.Metrics{EAR: math.NaN(), YawnDistance: 1}, DefaultThresholds())
	assert.Equal(t, StatusNormal, got.Status())
}

func TestClassify_Deterministic(t *testing.T) {
	m := landmark.Metrics{EAR: 0.21, YawnDistance: 22}
	first := Classify(1, m, DefaultThresholds())
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(1, m, DefaultThresholds()))
	}
}

func TestClassify_PriorityLaw(t *testing.T) {
	th := DefaultThresholds()
	for ear := 0.0; ear < th.EyeAspectRatio; ear += 0.01 {
		for yawn := th.YawnDistance + 0.5; yawn < 100; yawn += 7 {
			got := Classify(1, landmark.Metrics{EAR: ear, YawnDistance: yawn}, th)
			assert.IsType(t, DrowsinessDetected{}, got)
		}
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "Normal", StatusNormal.String())
	assert.Equal(t, "Drowsiness detected", StatusDrowsy.String())
	assert.Equal(t, "Yawning detected", StatusYawning.String())
	assert.Equal(t, "No face detected", StatusNoFace.String())

	assert.True(t, StatusDrowsy.IsAlert())
	assert.True(t, StatusYawning.IsAlert())
	assert.False(t, StatusNormal.IsAlert())
	assert.False(t, StatusNoFace.IsAlert())
}

func TestMetricsOf(t *testing.T) {
	_, ok := MetricsOf(NoFaceDetected{})
	assert.False(t, ok)

	m, ok := MetricsOf(YawningDetected{EAR: 0.3, YawnDistance: 40, Threshold: 20})
	assert.True(t, ok)
	assert.Equal(t, landmark.Metrics{EAR: 0.3, YawnDistance: 40}, m)
}
