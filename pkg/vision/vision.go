// Package vision holds the face locator and landmark extractor collaborators
// behind a read-only context that is initialised once at startup.
package vision

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"

	"DrowsyGuard/pkg/landmark"
)

var ErrModelUninitialized = errors.New("vision models are not initialized")

// FaceRegion is a face bounding box located in a grayscale frame.
type FaceRegion struct {
	Rect  image.Rectangle `json:"rect"`
	Score float64         `json:"score"`
}

// FaceLocator finds zero or more faces in a grayscale frame. Regions are in
// gray's coordinates, which Grayscale always makes zero-origin.
type FaceLocator interface {
	Locate(gray *image.Gray) ([]FaceRegion, error)
}

// LandmarkExtractor returns the 68-point landmark set of one face region.
// Points are in gray's zero-origin coordinates, the same space as the region,
// and are drawn as-is by the annotator.
type LandmarkExtractor interface {
	Extract(ctx context.Context, gray *image.Gray, region FaceRegion) (landmark.Set, error)
}

// Loader builds the collaborators. It runs exactly once, in Init.
type Loader func() (FaceLocator, LandmarkExtractor, error)

// Models is the process-wide collaborator context. It is safe for concurrent
// use once Init has returned.
type Models struct {
	once      sync.Once
	ready     atomic.Bool
	initErr   error
	locator   FaceLocator
	extractor LandmarkExtractor
}

func New() *Models {
	return &Models{}
}

// Init loads the collaborators and records the outcome. Later calls return the
// first outcome without loading again.
func (m *Models) Init(load Loader) error {
	m.once.Do(func() {
		locator, extractor, err := load()
		if err != nil {
			m.initErr = err
			return
		}
		if locator == nil || extractor == nil {
			m.initErr = errors.New("vision loader returned a nil collaborator")
			return
		}
		m.locator = locator
		m.extractor = extractor
		m.ready.Store(true)
	})
	return m.initErr
}

// Ready returns nil when the collaborators can serve requests.
func (m *Models) Ready() error {
	if m == nil || !m.ready.Load() {
		if m != nil && m.initErr != nil {
			return errors.Join(ErrModelUninitialized, m.initErr)
		}
		return ErrModelUninitialized
	}
	return nil
}

func (m *Models) Locator() FaceLocator {
	return m.locator
}

func (m *Models) Extractor() LandmarkExtractor {
	return m.extractor
}

// Grayscale converts img into a zero-origin 8-bit luma buffer.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
