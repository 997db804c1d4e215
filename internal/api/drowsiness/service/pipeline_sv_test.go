package drowsinessService

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"DrowsyGuard/internal/api/drowsiness"
	"DrowsyGuard/internal/entity"
	"DrowsyGuard/pkg/annotator"
	"DrowsyGuard/pkg/classifier"
	"DrowsyGuard/pkg/landmark"
	"DrowsyGuard/pkg/response"
	"DrowsyGuard/pkg/utils"
	"DrowsyGuard/pkg/vision"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var oneFace = []vision.FaceRegion{{Rect: image.Rect(0, 0, 40, 40), Score: 9}}

func newTestService(models *vision.Models, th classifier.Thresholds, opts ...Option) *drowsinessService {
	return NewDrowsinessService(quietLogger(), models, th, utils.New(), opts...).(*drowsinessService)
}

func TestAnalyze_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		thresholds classifier.Thresholds
		set        landmark.Set
		want       classifier.Status
	}{
		{
			name:       "open eyes and closed mouth",
			thresholds: classifier.Thresholds{EyeAspectRatio: 0.25, YawnDistance: 15},
			set:        faceWith(openEye, 20, 25),
			want:       classifier.StatusNormal,
		},
		{
			name:       "raised eye threshold",
			thresholds: classifier.Thresholds{EyeAspectRatio: 0.9, YawnDistance: 15},
			set:        faceWith(openEye, 20, 25),
			want:       classifier.StatusDrowsy,
		},
		{
			name:       "wide open mouth",
			thresholds: classifier.DefaultThresholds(),
			set:        faceWith(openEye, 10, 40),
			want:       classifier.StatusYawning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locator := &stubLocator{faces: oneFace}
			extractor := &stubExtractor{set: tt.set}
			svc := newTestService(readyModels(t, locator, extractor), tt.thresholds)

			outcome, err := svc.Analyze(context.Background(), testFrame(64, 48), drowsiness.AnalyzeOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome.Result.Status())
			assert.Equal(t, 1, outcome.FaceCount)
			assert.Nil(t, outcome.Annotated)

			m, ok := classifier.MetricsOf(outcome.Result)
			require.True(t, ok)
			assert.InDelta(t, 0.667, m.EAR, 0.001)
		})
	}
}

func TestAnalyze_NoFaceSkipsExtractor(t *testing.T) {
	locator := &stubLocator{}
	extractor := &stubExtractor{set: faceWith(openEye, 0, 100)}
	svc := newTestService(readyModels(t, locator, extractor), classifier.DefaultThresholds())

	outcome, err := svc.Analyze(context.Background(), testFrame(32, 32), drowsiness.AnalyzeOptions{Annotate: true})
	require.NoError(t, err)

	assert.Equal(t, classifier.NoFaceDetected{}, outcome.Result)
	assert.Equal(t, 0, outcome.FaceCount)
	assert.Empty(t, extractor.regions)
	assert.Nil(t, outcome.Landmarks)
	assert.NotNil(t, outcome.Annotated)
}

func TestAnalyze_OnlyFirstFaceIsMeasured(t *testing.T) {
	faces := []vision.FaceRegion{
		{Rect: image.Rect(10, 10, 50, 50), Score: 12},
		{Rect: image.Rect(60, 10, 90, 40), Score: 8},
		{Rect: image.Rect(0, 50, 20, 70), Score: 6},
	}
	locator := &stubLocator{faces: faces}
	extractor := &stubExtractor{set: faceWith(openEye, 20, 25)}
	svc := newTestService(readyModels(t, locator, extractor), classifier.DefaultThresholds())

	outcome, err := svc.Analyze(context.Background(), testFrame(100, 80), drowsiness.AnalyzeOptions{})
	require.NoError(t, err)

	require.Len(t, extractor.regions, 1)
	assert.Equal(t, faces[0], extractor.regions[0])
	assert.Equal(t, faces[0], outcome.Face)
	assert.Equal(t, 3, outcome.FaceCount)

	normal, ok := outcome.Result.(classifier.Normal)
	require.True(t, ok)
	assert.Equal(t, 3, normal.FaceCount)
}

func TestAnalyze_Failures(t *testing.T) {
	tests := []struct {
		name       string
		locator    *stubLocator
		extractor  *stubExtractor
		wantErr    error
		wantReason string
	}{
		{
			name:       "short landmark set",
			locator:    &stubLocator{faces: oneFace},
			extractor:  &stubExtractor{set: make(landmark.Set, 67)},
			wantErr:    drowsiness.ErrInvalidLandmarkCount,
			wantReason: "invalid_landmark_count",
		},
		{
			name:       "long landmark set",
			locator:    &stubLocator{faces: oneFace},
			extractor:  &stubExtractor{set: make(landmark.Set, 136)},
			wantErr:    drowsiness.ErrInvalidLandmarkCount,
			wantReason: "invalid_landmark_count",
		},
		{
			name:       "locator error",
			locator:    &stubLocator{err: errors.New("cascade exploded")},
			extractor:  &stubExtractor{},
			wantErr:    drowsiness.ErrFaceLocatorFailed,
			wantReason: "face_locator_failed",
		},
		{
			name:       "extractor error",
			locator:    &stubLocator{faces: oneFace},
			extractor:  &stubExtractor{err: errors.New("service unavailable")},
			wantErr:    drowsiness.ErrLandmarkExtractorFailed,
			wantReason: "landmark_extractor_failed",
		},
		{
			name:       "extractor reports bad count",
			locator:    &stubLocator{faces: oneFace},
			extractor:  &stubExtractor{err: landmark.ErrInvalidLandmarkCount},
			wantErr:    drowsiness.ErrInvalidLandmarkCount,
			wantReason: "invalid_landmark_count",
		},
		{
			name:       "extractor deadline",
			locator:    &stubLocator{faces: oneFace},
			extractor:  &stubExtractor{err: fmt.Errorf("landmark response not received: %w", context.DeadlineExceeded)},
			wantErr:    drowsiness.ErrFrameTimeout,
			wantReason: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &stubRecorder{}
			svc := newTestService(readyModels(t, tt.locator, tt.extractor), classifier.DefaultThresholds(), WithMetrics(recorder))

			outcome, err := svc.Analyze(context.Background(), testFrame(64, 48), drowsiness.AnalyzeOptions{})
			assert.Nil(t, outcome)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []recordedObservation{{label: tt.wantReason, failure: true}}, recorder.obs)
		})
	}
}

func TestAnalyze_ModelsNotReady(t *testing.T) {
	t.Run("never initialized", func(t *testing.T) {
		svc := newTestService(vision.New(), classifier.DefaultThresholds())

		_, err := svc.Analyze(context.Background(), testFrame(8, 8), drowsiness.AnalyzeOptions{})
		assert.ErrorIs(t, err, drowsiness.ErrModelUninitialized)
		assert.ErrorIs(t, err, vision.ErrModelUninitialized)
		assert.Equal(t, 503, response.StatusCode(err))
		assert.Error(t, svc.Readiness())

		_, err = svc.ProcessFrame(context.Background(), []byte("not an image"), drowsiness.AnalyzeOptions{})
		assert.ErrorIs(t, err, drowsiness.ErrModelUninitialized)
	})

	t.Run("initialization failed", func(t *testing.T) {
		models := vision.New()
		loadErr := errors.New("cascade file missing")
		require.ErrorIs(t, models.Init(func() (vision.FaceLocator, vision.LandmarkExtractor, error) {
			return nil, nil, loadErr
		}), loadErr)

		svc := newTestService(models, classifier.DefaultThresholds())
		_, err := svc.Analyze(context.Background(), testFrame(8, 8), drowsiness.AnalyzeOptions{})
		assert.ErrorIs(t, err, drowsiness.ErrModelUninitialized)
		assert.ErrorIs(t, err, loadErr)
	})
}

func TestAnalyze_AnnotateLeavesFrameUntouched(t *testing.T) {
	locator := &stubLocator{faces: oneFace}
	extractor := &stubExtractor{set: faceWith(openEye, 20, 25)}
	svc := newTestService(readyModels(t, locator, extractor), classifier.DefaultThresholds())

	frame := testFrame(64, 48).(*image.NRGBA)
	before := append([]uint8(nil), frame.Pix...)

	outcome, err := svc.Analyze(context.Background(), frame, drowsiness.AnalyzeOptions{Annotate: true})
	require.NoError(t, err)
	require.NotNil(t, outcome.Annotated)
	assert.Equal(t, before, frame.Pix)
	assert.Equal(t, frame.Bounds().Size(), outcome.Annotated.Bounds().Size())
}

func TestProcessFrame(t *testing.T) {
	locator := &stubLocator{faces: oneFace}
	extractor := &stubExtractor{set: faceWith(openEye, 20, 25)}
	recorder := &stubRecorder{}
	svc := newTestService(readyModels(t, locator, extractor), classifier.DefaultThresholds(), WithMetrics(recorder))

	t.Run("decodes png", func(t *testing.T) {
		outcome, err := svc.ProcessFrame(context.Background(), encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{})
		require.NoError(t, err)
		assert.Equal(t, classifier.StatusNormal, outcome.Result.Status())
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := svc.ProcessFrame(context.Background(), []byte("definitely not an image"), drowsiness.AnalyzeOptions{})
		assert.ErrorIs(t, err, drowsiness.ErrDecodeFailure)
		assert.Equal(t, 400, response.StatusCode(err))
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := svc.ProcessFrame(context.Background(), nil, drowsiness.AnalyzeOptions{})
		assert.ErrorIs(t, err, drowsiness.ErrDecodeFailure)
	})

	assert.Equal(t, []recordedObservation{
		{label: "Normal"},
		{label: "decode_failure", failure: true},
		{label: "decode_failure", failure: true},
	}, recorder.obs)
}

func TestDetect_RaisesAlert(t *testing.T) {
	locator := &stubLocator{faces: oneFace}
	extractor := &stubExtractor{set: faceWith(openEye, 20, 25)}
	redisStub := &stubRedis{}
	s3Stub := &stubS3{}
	repo := &stubRepository{store: &stubLogStore{}}
	mailer := &stubMailer{}

	svc := newTestService(
		readyModels(t, locator, extractor),
		classifier.Thresholds{EyeAspectRatio: 0.9, YawnDistance: 15},
		WithAlertSinks(redisStub, s3Stub),
		WithMailer(mailer),
		WithRepository(repo),
	)

	resp, err := svc.Detect(context.Background(), encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{Annotate: true, Source: "cab-12"})
	require.NoError(t, err)

	assert.Equal(t, "Drowsiness detected", resp.Status)
	require.NotNil(t, resp.EAR)
	assert.Equal(t, 0.67, *resp.EAR)
	assert.NotEmpty(t, resp.AnnotatedImage)

	require.Len(t, redisStub.alerts, 1)
	alert := redisStub.alerts[0]
	assert.Equal(t, "cab-12", alert.Source)
	assert.Equal(t, "Drowsiness detected", alert.Status)
	require.NotNil(t, alert.EAR)
	assert.Equal(t, 0.67, *alert.EAR)
	require.Len(t, s3Stub.keys, 1)
	assert.Equal(t, alert.ID+".jpg", s3Stub.keys[0])
	assert.Contains(t, alert.SnapshotURL, alert.ID)

	require.Len(t, repo.store.logs, 1)
	record := repo.store.logs[0]
	assert.Equal(t, entity.LogSourceAlert, record.Source)
	assert.Equal(t, alert.ID, record.ID)
	require.NotNil(t, record.SnapshotURL)
	assert.Equal(t, alert.SnapshotURL, *record.SnapshotURL)
	assert.Equal(t, 1, repo.commits)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, alert, mailer.sent[0])
}

func TestDetect_NormalRaisesNothing(t *testing.T) {
	redisStub := &stubRedis{}
	repo := &stubRepository{store: &stubLogStore{}}
	svc := newTestService(
		readyModels(t, &stubLocator{faces: oneFace}, &stubExtractor{set: faceWith(openEye, 20, 25)}),
		classifier.DefaultThresholds(),
		WithAlertSinks(redisStub, nil),
		WithRepository(repo),
	)

	resp, err := svc.Detect(context.Background(), encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Normal", resp.Status)
	assert.Empty(t, resp.AnnotatedImage)
	assert.Empty(t, redisStub.alerts)
	assert.Empty(t, repo.store.logs)
}

func TestDetect_AlertFailuresDoNotFailTheFrame(t *testing.T) {
	repo := &stubRepository{store: &stubLogStore{createErr: errors.New("db down")}}
	svc := newTestService(
		readyModels(t, &stubLocator{faces: oneFace}, &stubExtractor{set: faceWith(openEye, 10, 40)}),
		classifier.DefaultThresholds(),
		WithAlertSinks(&stubRedis{err: errors.New("redis down")}, &stubS3{err: errors.New("s3 down")}),
		WithRepository(repo),
	)

	resp, err := svc.Detect(context.Background(), encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{Annotate: true, Source: "cab-3"})
	require.NoError(t, err)
	assert.Equal(t, "Yawning detected", resp.Status)
	require.NotNil(t, resp.Threshold)
	assert.Equal(t, 20.0, *resp.Threshold)
	assert.Equal(t, 1, repo.rollbacks)
}

func TestDetect_NoFace(t *testing.T) {
	redisStub := &stubRedis{}
	svc := newTestService(
		readyModels(t, &stubLocator{}, &stubExtractor{}),
		classifier.DefaultThresholds(),
		WithAlertSinks(redisStub, nil),
	)

	resp, err := svc.Detect(context.Background(), encodePNG(t, testFrame(16, 16)), drowsiness.AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "No face detected", resp.Status)
	assert.Nil(t, resp.EAR)
	assert.Nil(t, resp.Yawn)
	assert.Empty(t, redisStub.alerts)
}

func TestDetect_CollapsedEyeIsReportedWithoutEAR(t *testing.T) {
	zeroWidth := landmark.Eye{{X: 3, Y: 0}, {X: 3, Y: -2}, {X: 3, Y: -2}, {X: 3, Y: 0}, {X: 3, Y: 2}, {X: 3, Y: 2}}
	collapsed := landmark.Eye{{X: 3, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 0}}

	t.Run("normal", func(t *testing.T) {
		svc := newTestService(
			readyModels(t, &stubLocator{faces: oneFace}, &stubExtractor{set: faceWith(zeroWidth, 20, 25)}),
			classifier.DefaultThresholds(),
		)

		resp, err := svc.Detect(context.Background(), encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{})
		require.NoError(t, err)
		assert.Equal(t, "Normal", resp.Status)
		assert.Nil(t, resp.EAR)
		require.NotNil(t, resp.Yawn)
		assert.Equal(t, 5.0, *resp.Yawn)

		_, err = jsoniter.Marshal(resp)
		assert.NoError(t, err)
	})

	t.Run("yawning raises an alert without ear", func(t *testing.T) {
		redisStub := &stubRedis{}
		repo := &stubRepository{store: &stubLogStore{}}
		svc := newTestService(
			readyModels(t, &stubLocator{faces: oneFace}, &stubExtractor{set: faceWith(collapsed, 10, 40)}),
			classifier.DefaultThresholds(),
			WithAlertSinks(redisStub, nil),
			WithRepository(repo),
		)

		resp, err := svc.Detect(context.Background(), encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{Annotate: true, Source: "cab-5"})
		require.NoError(t, err)
		assert.Equal(t, "Yawning detected", resp.Status)
		assert.Nil(t, resp.EAR)
		assert.NotEmpty(t, resp.AnnotatedImage)

		body, err := jsoniter.Marshal(resp)
		require.NoError(t, err)
		assert.NotContains(t, string(body), `"ear"`)

		require.Len(t, redisStub.alerts, 1)
		assert.Nil(t, redisStub.alerts[0].EAR)
		payload, err := jsoniter.Marshal(redisStub.alerts[0])
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"ear":null`)

		require.Len(t, repo.store.logs, 1)
		assert.Nil(t, repo.store.logs[0].EAR)
	})
}

func TestDetect_ExpiredFrameRaisesNoAlert(t *testing.T) {
	redisStub := &stubRedis{}
	mailer := &stubMailer{}
	repo := &stubRepository{store: &stubLogStore{}}
	svc := newTestService(
		readyModels(t, &stubLocator{faces: oneFace}, &stubExtractor{set: faceWith(openEye, 10, 40)}),
		classifier.DefaultThresholds(),
		WithAlertSinks(redisStub, nil),
		WithMailer(mailer),
		WithRepository(repo),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.Detect(ctx, encodePNG(t, testFrame(64, 48)), drowsiness.AnalyzeOptions{Source: "cab-7"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, drowsiness.ErrFrameTimeout)
	assert.Empty(t, redisStub.alerts)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, repo.store.logs)
}

func TestAnalyze_AnnotatesNonZeroOriginFrame(t *testing.T) {
	set := faceWith(openEye, 20, 25)
	for i := range set {
		set[i].X += 10
		set[i].Y += 50
	}
	svc := newTestService(
		readyModels(t, &stubLocator{faces: oneFace}, &stubExtractor{set: set}),
		classifier.DefaultThresholds(),
	)

	frame := testFrame(160, 140).(*image.NRGBA).SubImage(image.Rect(30, 40, 160, 140))

	outcome, err := svc.Analyze(context.Background(), frame, drowsiness.AnalyzeOptions{Annotate: true})
	require.NoError(t, err)
	require.NotNil(t, outcome.Annotated)

	assert.Equal(t, image.Rect(0, 0, 130, 100), outcome.Annotated.Bounds())
	p := set[landmark.OuterLipStart]
	assert.Equal(t, annotator.PointColor, outcome.Annotated.NRGBAAt(int(p.X), int(p.Y)))
}
