package drowsiness

import (
	"encoding/base64"
	"image"
	"time"

	"DrowsyGuard/internal/entity"
	"DrowsyGuard/pkg/classifier"
	"DrowsyGuard/pkg/landmark"
	"DrowsyGuard/pkg/utils"
	"DrowsyGuard/pkg/vision"
)

// AnalyzeOptions tune one pipeline pass. Source names the camera or client
// the frame came from and tags alerts.
type AnalyzeOptions struct {
	Annotate bool
	Source   string
}

// Outcome is the result of one successful pipeline pass. Face and Landmarks
// are zero for a frame without a face.
type Outcome struct {
	Result    classifier.Result
	FaceCount int
	Face      vision.FaceRegion
	Landmarks landmark.Set
	Annotated *image.NRGBA
}

type ThresholdResponse struct {
	EyeAspectRatio float64 `json:"eye_aspect_ratio"`
	YawnDistance   float64 `json:"yawn_distance"`
}

type DetectionResponse struct {
	Status         string   `json:"status"`
	EAR            *float64 `json:"ear,omitempty"`
	Yawn           *float64 `json:"yawn,omitempty"`
	FaceCount      int      `json:"face_count"`
	Threshold      *float64 `json:"threshold,omitempty"`
	AnnotatedImage string   `json:"annotated_image,omitempty"`
}

// NewDetectionResponse renders an outcome. Metrics are rounded to two
// decimals and omitted when no face was found. annotatedJPEG is optional.
func NewDetectionResponse(o *Outcome, annotatedJPEG []byte) DetectionResponse {
	resp := DetectionResponse{
		Status:    o.Result.Status().String(),
		FaceCount: o.FaceCount,
	}

	// A collapsed eye has no finite EAR; it is reported as null.
	if m, ok := classifier.MetricsOf(o.Result); ok {
		resp.EAR = utils.RoundFinite(m.EAR, 2)
		resp.Yawn = utils.RoundFinite(m.YawnDistance, 2)
	}

	switch r := o.Result.(type) {
	case classifier.DrowsinessDetected:
		resp.Threshold = &r.Threshold
	case classifier.YawningDetected:
		resp.Threshold = &r.Threshold
	}

	if len(annotatedJPEG) > 0 {
		resp.AnnotatedImage = base64.StdEncoding.EncodeToString(annotatedJPEG)
	}

	return resp
}

type StatusResponse struct {
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Thresholds ThresholdResponse `json:"thresholds"`
}

type CreateDetectionLogRequest struct {
	EAR  *float64 `json:"ear" validate:"required,gte=0"`
	Yawn *float64 `json:"yawn" validate:"required,gte=0"`
}

type ListDetectionLogsRequest struct {
	Page  int `query:"page" validate:"gte=1"`
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

type DetectionLogResponse struct {
	ID          string    `json:"id"`
	OperatorID  string    `json:"operator_id,omitempty"`
	EAR         *float64  `json:"ear"`
	Yawn        float64   `json:"yawn"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewDetectionLogResponse(l entity.DetectionLog) DetectionLogResponse {
	resp := DetectionLogResponse{
		ID:         l.ID,
		OperatorID: l.OperatorID,
		Yawn:       l.Yawn,
		Status:     l.Status,
		Source:     l.Source.String(),
		CreatedAt:  l.CreatedAt,
	}
	if l.EAR != nil {
		resp.EAR = utils.RoundFinite(*l.EAR, 2)
	}
	if l.SnapshotURL != nil {
		resp.SnapshotURL = *l.SnapshotURL
	}
	return resp
}

type CreateDetectionLogResponse struct {
	Message string               `json:"message"`
	Data    DetectionLogResponse `json:"data"`
}

type ListDetectionLogsResponse struct {
	Data  []DetectionLogResponse `json:"data"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
	Total int                    `json:"total"`
}

type LastAlertRequest struct {
	Source string `query:"source" validate:"required,max=128"`
}
