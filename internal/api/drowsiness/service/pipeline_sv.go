package drowsinessService

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"DrowsyGuard/internal/api/drowsiness"
	"DrowsyGuard/pkg/annotator"
	"DrowsyGuard/pkg/classifier"
	contextPkg "DrowsyGuard/pkg/context"
	"DrowsyGuard/pkg/landmark"
	"DrowsyGuard/pkg/vision"
	"github.com/sirupsen/logrus"
)

const annotatedJPEGQuality = 85

// Analyze runs one frame through the pipeline. Only the first located face
// (the highest scoring one) is measured; FaceCount reports all of them. Every
// error wraps one of the drowsiness sentinels and no partial outcome is
// returned.
func (s *drowsinessService) Analyze(ctx context.Context, frame image.Image, opts drowsiness.AnalyzeOptions) (*drowsiness.Outcome, error) {
	start := time.Now()

	outcome, err := s.analyze(ctx, frame, opts)
	if err != nil {
		s.metrics.ObserveFailure(failureReason(err), time.Since(start))
		return nil, err
	}

	s.metrics.ObserveFrame(outcome.Result.Status().String(), time.Since(start))
	return outcome, nil
}

// ProcessFrame decodes an encoded frame and analyzes it.
func (s *drowsinessService) ProcessFrame(ctx context.Context, data []byte, opts drowsiness.AnalyzeOptions) (*drowsiness.Outcome, error) {
	if err := s.ready(); err != nil {
		s.metrics.ObserveFailure(failureReason(err), 0)
		return nil, err
	}

	frame, format, err := s.utils.DecodeImage(data)
	if err != nil {
		s.metrics.ObserveFailure(failureReason(drowsiness.ErrDecodeFailure), 0)
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrDecodeFailure, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"format":     format,
		"width":      frame.Bounds().Dx(),
		"height":     frame.Bounds().Dy(),
	}).Debug("Frame decoded")

	return s.Analyze(ctx, frame, opts)
}

// Detect processes a frame, raises an alert for drowsiness or yawning and
// renders the response. A frame whose ctx has expired by the time it is
// classified is reported as ErrFrameTimeout and raises no alert; once an
// alert is raised the response is always returned.
func (s *drowsinessService) Detect(ctx context.Context, data []byte, opts drowsiness.AnalyzeOptions) (*drowsiness.DetectionResponse, error) {
	outcome, err := s.ProcessFrame(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrFrameTimeout, err)
	}

	var annotatedJPEG []byte
	if outcome.Annotated != nil {
		annotatedJPEG, err = annotator.EncodeJPEG(outcome.Annotated, annotatedJPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
		}
	}

	if outcome.Result.Status().IsAlert() {
		s.raiseAlert(ctx, outcome, annotatedJPEG, opts.Source)
	}

	resp := drowsiness.NewDetectionResponse(outcome, annotatedJPEG)
	return &resp, nil
}

func (s *drowsinessService) analyze(ctx context.Context, frame image.Image, opts drowsiness.AnalyzeOptions) (*drowsiness.Outcome, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", drowsiness.ErrDecodeFailure)
	}

	gray := vision.Grayscale(frame)

	faces, err := s.models.Locator().Locate(gray)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrFaceLocatorFailed, err)
	}

	if len(faces) == 0 {
		outcome := &drowsiness.Outcome{
			Result: classifier.Classify(0, landmark.Metrics{}, s.thresholds),
		}
		if opts.Annotate {
			outcome.Annotated = annotator.Annotate(frame, nil, landmark.Metrics{}, classifier.StatusNoFace)
		}
		return outcome, nil
	}

	face := faces[0]

	set, err := s.models.Extractor().Extract(ctx, gray, face)
	if err != nil {
		if errors.Is(err, landmark.ErrInvalidLandmarkCount) {
			return nil, fmt.Errorf("%w: %w", drowsiness.ErrInvalidLandmarkCount, err)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", drowsiness.ErrFrameTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrLandmarkExtractorFailed, err)
	}

	regions, err := landmark.ExtractRegions(set)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInvalidLandmarkCount, err)
	}

	m := landmark.ComputeMetrics(regions)
	result := classifier.Classify(len(faces), m, s.thresholds)

	outcome := &drowsiness.Outcome{
		Result:    result,
		FaceCount: len(faces),
		Face:      face,
		Landmarks: set,
	}
	if opts.Annotate {
		outcome.Annotated = annotator.Annotate(frame, set, m, result.Status())
	}

	return outcome, nil
}

func (s *drowsinessService) ready() error {
	if err := s.models.Ready(); err != nil {
		return fmt.Errorf("%w: %w", drowsiness.ErrModelUninitialized, err)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, drowsiness.ErrDecodeFailure):
		return "decode_failure"
	case errors.Is(err, drowsiness.ErrModelUninitialized):
		return "model_uninitialized"
	case errors.Is(err, drowsiness.ErrFaceLocatorFailed):
		return "face_locator_failed"
	case errors.Is(err, drowsiness.ErrInvalidLandmarkCount):
		return "invalid_landmark_count"
	case errors.Is(err, drowsiness.ErrLandmarkExtractorFailed):
		return "landmark_extractor_failed"
	case errors.Is(err, drowsiness.ErrFrameTimeout):
		return "timeout"
	default:
		return "unknown"
	}
}
