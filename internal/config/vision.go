package config

import (
	"os"

	"DrowsyGuard/pkg/facedetect"
	"DrowsyGuard/pkg/vision"
	websocketPkg "DrowsyGuard/pkg/websocket"
)

const (
	EnvFaceCascadePath = "FACE_CASCADE_PATH"
	EnvFaceMinSize     = "FACE_MIN_SIZE"
	EnvFaceMinScore    = "FACE_MIN_SCORE"
)

// FaceDetectConfig is the pigo locator configuration with environment
// overrides applied.
func FaceDetectConfig() (facedetect.Config, error) {
	cfg := facedetect.DefaultConfig()

	if path := os.Getenv(EnvFaceCascadePath); path != "" {
		cfg.CascadePath = path
	}

	minSize, err := intFromEnv(EnvFaceMinSize, cfg.MinSize)
	if err != nil {
		return facedetect.Config{}, err
	}
	minScore, err := floatFromEnv(EnvFaceMinScore, float64(cfg.MinScore))
	if err != nil {
		return facedetect.Config{}, err
	}

	cfg.MinSize = minSize
	cfg.MinScore = float32(minScore)
	return cfg, nil
}

// NewVisionLoader builds the face locator from the cascade on disk and pairs
// it with the landmark service client.
func NewVisionLoader(landmarks websocketPkg.ILandmarkClient) vision.Loader {
	return func() (vision.FaceLocator, vision.LandmarkExtractor, error) {
		cfg, err := FaceDetectConfig()
		if err != nil {
			return nil, nil, err
		}

		locator, err := facedetect.New(cfg)
		if err != nil {
			return nil, nil, err
		}

		return locator, landmarks, nil
	}
}
