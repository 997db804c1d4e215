package drowsinessService

import (
	"context"
	"fmt"
	"time"

	"DrowsyGuard/internal/api/drowsiness"
	"DrowsyGuard/internal/entity"
	"DrowsyGuard/pkg/classifier"
	contextPkg "DrowsyGuard/pkg/context"
	"DrowsyGuard/pkg/landmark"
	"github.com/sirupsen/logrus"
)

// CreateLog stores a manually reported measurement. The status is derived
// from the values as if one face had been seen.
func (s *drowsinessService) CreateLog(ctx context.Context, operatorID string, req drowsiness.CreateDetectionLogRequest) (*drowsiness.DetectionLogResponse, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: detection log storage is not configured", drowsiness.ErrInternalServerError)
	}

	now := time.Now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
	}

	m := landmark.Metrics{EAR: *req.EAR, YawnDistance: *req.Yawn}
	record := entity.DetectionLog{
		ID:         id,
		OperatorID: operatorID,
		EAR:        req.EAR,
		Yawn:       m.YawnDistance,
		Status:     classifier.Classify(1, m, s.thresholds).Status().String(),
		Source:     entity.LogSourceManual,
		CreatedAt:  now,
	}

	if err := s.storeLog(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  contextPkg.GetRequestID(ctx),
		"log_id":      id,
		"operator_id": operatorID,
		"status":      record.Status,
	}).Info("Detection log created")

	resp := drowsiness.NewDetectionLogResponse(record)
	return &resp, nil
}

// ListLogs returns one page of the detection log, newest first.
func (s *drowsinessService) ListLogs(ctx context.Context, req drowsiness.ListDetectionLogsRequest) (*drowsiness.ListDetectionLogsResponse, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: detection log storage is not configured", drowsiness.ErrInternalServerError)
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
	}

	logs, err := client.DetectionLogs.ListLogs(ctx, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
	}

	total, err := client.DetectionLogs.CountLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", drowsiness.ErrInternalServerError, err)
	}

	data := make([]drowsiness.DetectionLogResponse, 0, len(logs))
	for _, l := range logs {
		s.presignSnapshot(ctx, &l)
		data = append(data, drowsiness.NewDetectionLogResponse(l))
	}

	return &drowsiness.ListDetectionLogsResponse{
		Data:  data,
		Page:  req.Page,
		Limit: req.Limit,
		Total: total,
	}, nil
}

// presignSnapshot swaps the stored snapshot location for a short-lived
// download link. The stored url is kept when signing fails.
func (s *drowsinessService) presignSnapshot(ctx context.Context, l *entity.DetectionLog) {
	if s.s3 == nil || l.SnapshotURL == nil || *l.SnapshotURL == "" {
		return
	}

	signed, err := s.s3.PresignUrl(*l.SnapshotURL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"log_id":     l.ID,
		}).WithError(err).Warn("Failed to presign snapshot url")
		return
	}
	l.SnapshotURL = &signed
}

func (s *drowsinessService) storeLog(ctx context.Context, record entity.DetectionLog) error {
	client, err := s.repo.NewClient(true)
	if err != nil {
		return err
	}

	if err := client.DetectionLogs.CreateLog(ctx, record); err != nil {
		if rbErr := client.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Error("Failed to rollback detection log transaction")
		}
		return err
	}

	return client.Commit()
}
