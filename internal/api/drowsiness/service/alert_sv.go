package drowsinessService

import (
	"context"
	"fmt"
	"time"

	"DrowsyGuard/internal/api/drowsiness"
	"DrowsyGuard/internal/entity"
	"DrowsyGuard/pkg/classifier"
	contextPkg "DrowsyGuard/pkg/context"
	"DrowsyGuard/pkg/utils"
	"github.com/sirupsen/logrus"
)

const alertTimeout = 5 * time.Second

// raiseAlert publishes a drowsiness or yawning outcome, uploads its snapshot
// and records it in the detection log. Failures are logged and never reach
// the caller.
func (s *drowsinessService) raiseAlert(ctx context.Context, outcome *drowsiness.Outcome, snapshot []byte, source string) {
	requestID := contextPkg.GetRequestID(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	fields := logrus.Fields{
		"request_id": requestID,
		"source":     source,
		"status":     outcome.Result.Status().String(),
	}

	m, _ := classifier.MetricsOf(outcome.Result)
	now := time.Now()

	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to generate alert id")
		return
	}

	alert := entity.DrowsinessAlert{
		ID:         id,
		Source:     source,
		Status:     outcome.Result.Status().String(),
		EAR:        utils.RoundFinite(m.EAR, 2),
		Yawn:       utils.Round(m.YawnDistance, 2),
		FaceCount:  outcome.FaceCount,
		DetectedAt: now,
	}

	if s.s3 != nil && len(snapshot) > 0 {
		url, err := s.s3.UploadSnapshot(ctx, id+".jpg", snapshot, "image/jpeg")
		if err != nil {
			s.log.WithFields(fields).WithError(err).Error("Failed to upload alert snapshot")
		} else {
			alert.SnapshotURL = url
		}
	}

	if s.repo != nil {
		record := entity.DetectionLog{
			ID:        id,
			EAR:       alert.EAR,
			Yawn:      alert.Yawn,
			Status:    alert.Status,
			Source:    entity.LogSourceAlert,
			CreatedAt: now,
		}
		if alert.SnapshotURL != "" {
			record.SnapshotURL = &alert.SnapshotURL
		}

		if err := s.storeLog(ctx, record); err != nil {
			s.log.WithFields(fields).WithError(err).Error("Failed to record alert in detection log")
		}
	}

	if s.redis != nil {
		if err := s.redis.PublishAlert(ctx, alert); err != nil {
			s.log.WithFields(fields).WithError(err).Error("Failed to publish alert")
		}
	}

	if s.mailer != nil {
		if err := s.mailer.SendAlert(alert); err != nil {
			s.log.WithFields(fields).WithError(err).Error("Failed to mail alert")
		}
	}

	s.log.WithFields(fields).WithField("alert_id", id).Info("Alert raised")
}

// LastAlert returns the most recent alert raised for source while it is
// still held by the alert store.
func (s *drowsinessService) LastAlert(ctx context.Context, source string) (*entity.DrowsinessAlert, error) {
	if s.redis == nil {
		return nil, drowsiness.ErrAlertStoreUnavailable
	}

	alert, err := s.redis.GetLastAlert(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
	}
	if alert == nil {
		return nil, drowsiness.ErrAlertNotFound
	}

	return alert, nil
}
