package config

import (
	"fmt"
	"os"
	"strconv"

	"DrowsyGuard/pkg/classifier"
	"github.com/go-playground/validator/v10"
)

const (
	EnvEyeAspectRatioThreshold = "EYE_AR_THRESHOLD"
	EnvYawnDistanceThreshold   = "YAWN_THRESHOLD"
)

// NewThresholds reads the classification thresholds from the environment,
// falling back to the defaults, and rejects values out of range.
func NewThresholds(validate *validator.Validate) (classifier.Thresholds, error) {
	th := classifier.DefaultThresholds()

	ear, err := floatFromEnv(EnvEyeAspectRatioThreshold, th.EyeAspectRatio)
	if err != nil {
		return classifier.Thresholds{}, err
	}
	yawn, err := floatFromEnv(EnvYawnDistanceThreshold, th.YawnDistance)
	if err != nil {
		return classifier.Thresholds{}, err
	}

	th.EyeAspectRatio = ear
	th.YawnDistance = yawn

	if err := validate.Struct(th); err != nil {
		return classifier.Thresholds{}, fmt.Errorf("invalid thresholds: %w", err)
	}

	return th, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}
