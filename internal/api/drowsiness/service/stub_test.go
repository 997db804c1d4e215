package drowsinessService

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	drowsinessRepository "DrowsyGuard/internal/api/drowsiness/repository"
	"DrowsyGuard/internal/entity"
	"DrowsyGuard/pkg/landmark"
	"DrowsyGuard/pkg/vision"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var openEye = landmark.Eye{{X: 0, Y: 0}, {X: 2, Y: -2}, {X: 4, Y: -2}, {X: 6, Y: 0}, {X: 4, Y: 2}, {X: 2, Y: 2}}

// faceWith places eye at both eye slots and the lip clusters at topY/bottomY.
func faceWith(eye landmark.Eye, topY, bottomY float64) landmark.Set {
	s := make(landmark.Set, landmark.NumLandmarks)
	for i := range s {
		s[i] = landmark.Point2D{X: float64(i % 40), Y: 10}
	}
	copy(s[landmark.LeftEyeStart:], eye[:])
	copy(s[landmark.RightEyeStart:], eye[:])
	for _, i := range []int{50, 51, 52, 61, 62, 63} {
		s[i] = landmark.Point2D{X: float64(i - 30), Y: topY}
	}
	for _, i := range []int{56, 57, 58, 65, 66, 67} {
		s[i] = landmark.Point2D{X: float64(i - 30), Y: bottomY}
	}
	return s
}

type stubLocator struct {
	faces []vision.FaceRegion
	err   error
	calls int
}

func (l *stubLocator) Locate(gray *image.Gray) ([]vision.FaceRegion, error) {
	l.calls++
	return l.faces, l.err
}

type stubExtractor struct {
	set     landmark.Set
	err     error
	regions []vision.FaceRegion
}

func (e *stubExtractor) Extract(ctx context.Context, gray *image.Gray, region vision.FaceRegion) (landmark.Set, error) {
	e.regions = append(e.regions, region)
	return e.set, e.err
}

func readyModels(t *testing.T, locator vision.FaceLocator, extractor vision.LandmarkExtractor) *vision.Models {
	t.Helper()
	models := vision.New()
	require.NoError(t, models.Init(func() (vision.FaceLocator, vision.LandmarkExtractor, error) {
		return locator, extractor, nil
	}))
	return models
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testFrame(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type recordedObservation struct {
	label   string
	failure bool
}

type stubRecorder struct {
	mu  sync.Mutex
	obs []recordedObservation
}

func (r *stubRecorder) ObserveFrame(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, recordedObservation{label: status})
}

func (r *stubRecorder) ObserveFailure(reason string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, recordedObservation{label: reason, failure: true})
}

type stubLogStore struct {
	logs      []entity.DetectionLog
	createErr error
	total     int
	limit     int
	offset    int
}

func (s *stubLogStore) CreateLog(ctx context.Context, l entity.DetectionLog) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.logs = append(s.logs, l)
	return nil
}

func (s *stubLogStore) ListLogs(ctx context.Context, limit, offset int) ([]entity.DetectionLog, error) {
	s.limit, s.offset = limit, offset
	return s.logs, nil
}

func (s *stubLogStore) CountLogs(ctx context.Context) (int, error) {
	return s.total, nil
}

type stubRepository struct {
	store     *stubLogStore
	commits   int
	rollbacks int
	clientErr error
}

func (r *stubRepository) NewClient(tx bool) (drowsinessRepository.Client, error) {
	if r.clientErr != nil {
		return drowsinessRepository.Client{}, r.clientErr
	}
	return drowsinessRepository.Client{
		DetectionLogs: r.store,
		Commit: func() error {
			r.commits++
			return nil
		},
		Rollback: func() error {
			r.rollbacks++
			return nil
		},
	}, nil
}

type stubRedis struct {
	alerts  []entity.DrowsinessAlert
	err     error
	readErr error
}

func (r *stubRedis) PublishAlert(ctx context.Context, alert entity.DrowsinessAlert) error {
	if r.err != nil {
		return r.err
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *stubRedis) GetLastAlert(ctx context.Context, source string) (*entity.DrowsinessAlert, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	for i := len(r.alerts) - 1; i >= 0; i-- {
		if r.alerts[i].Source == source {
			return &r.alerts[i], nil
		}
	}
	return nil, nil
}

func (r *stubRedis) Ping(ctx context.Context) error {
	return nil
}

type stubS3 struct {
	keys       []string
	err        error
	presignErr error
}

func (s *stubS3) UploadSnapshot(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, name)
	return "https://snapshots.s3.amazonaws.com/drowsiness-snapshots/" + name, nil
}

func (s *stubS3) PresignUrl(fileUrl string) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return fileUrl + "?X-Amz-Signature=test", nil
}

type stubMailer struct {
	sent []entity.DrowsinessAlert
}

func (m *stubMailer) SendAlert(alert entity.DrowsinessAlert) error {
	m.sent = append(m.sent, alert)
	return nil
}
