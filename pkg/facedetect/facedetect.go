package facedetect

import (
	"fmt"
	"image"
	"os"
	"sort"

	"DrowsyGuard/pkg/vision"
	pigo "github.com/esimov/pigo/core"
)

type Config struct {
	CascadePath string
	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	IoU         float64
	MinScore    float32
}

func DefaultConfig() Config {
	return Config{
		CascadePath: "./models/facefinder",
		MinSize:     60,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		MinScore:    5.0,
	}
}

// Locator is a pigo cascade face locator. The unpacked classifier is
// read-only, so a Locator can serve concurrent requests.
type Locator struct {
	classifier *pigo.Pigo
	cfg        Config
}

func New(cfg Config) (*Locator, error) {
	cascade, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file: %w", err)
	}
	return NewFromCascade(cascade, cfg)
}

func NewFromCascade(cascade []byte, cfg Config) (*Locator, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &Locator{classifier: classifier, cfg: cfg}, nil
}

// Locate returns the detected faces ordered by descending detection score.
func (l *Locator) Locate(gray *image.Gray) ([]vision.FaceRegion, error) {
	if gray == nil {
		return nil, fmt.Errorf("nil frame")
	}
	cols, rows := gray.Bounds().Dx(), gray.Bounds().Dy()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	maxSize := l.cfg.MaxSize
	if m := max(cols, rows); maxSize <= 0 || maxSize > m {
		maxSize = m
	}

	cParams := pigo.CascadeParams{
		MinSize:     l.cfg.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: l.cfg.ShiftFactor,
		ScaleFactor: l.cfg.ScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: gray.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    gray.Stride,
		},
	}

	dets := l.classifier.RunCascade(cParams, 0.0)
	dets = l.classifier.ClusterDetections(dets, l.cfg.IoU)

	return toRegions(dets, l.cfg.MinScore), nil
}

func toRegions(dets []pigo.Detection, minScore float32) []vision.FaceRegion {
	regions := make([]vision.FaceRegion, 0, len(dets))
	for _, det := range dets {
		if det.Q < minScore {
			continue
		}
		half := det.Scale / 2
		regions = append(regions, vision.FaceRegion{
			Rect:  image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half),
			Score: float64(det.Q),
		})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Score > regions[j].Score
	})
	return regions
}
