package entity

import "time"

type DrowsinessAlert struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	EAR         *float64  `json:"ear"`
	Yawn        float64   `json:"yawn"`
	FaceCount   int       `json:"face_count"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}
