package drowsinessService

import (
	"context"
	"image"

	"DrowsyGuard/internal/api/drowsiness"
	drowsinessRepository "DrowsyGuard/internal/api/drowsiness/repository"
	"DrowsyGuard/internal/entity"
	"DrowsyGuard/pkg/classifier"
	"DrowsyGuard/pkg/metrics"
	"DrowsyGuard/pkg/redis"
	"DrowsyGuard/pkg/s3"
	"DrowsyGuard/pkg/smtp"
	"DrowsyGuard/pkg/utils"
	"DrowsyGuard/pkg/vision"
	"github.com/sirupsen/logrus"
)

type IDrowsinessService interface {
	Analyze(ctx context.Context, frame image.Image, opts drowsiness.AnalyzeOptions) (*drowsiness.Outcome, error)
	ProcessFrame(ctx context.Context, data []byte, opts drowsiness.AnalyzeOptions) (*drowsiness.Outcome, error)
	Detect(ctx context.Context, data []byte, opts drowsiness.AnalyzeOptions) (*drowsiness.DetectionResponse, error)
	Readiness() error
	Thresholds() classifier.Thresholds
	CreateLog(ctx context.Context, operatorID string, req drowsiness.CreateDetectionLogRequest) (*drowsiness.DetectionLogResponse, error)
	ListLogs(ctx context.Context, req drowsiness.ListDetectionLogsRequest) (*drowsiness.ListDetectionLogsResponse, error)
	LastAlert(ctx context.Context, source string) (*entity.DrowsinessAlert, error)
}

type drowsinessService struct {
	log        *logrus.Logger
	models     *vision.Models
	thresholds classifier.Thresholds
	repo       drowsinessRepository.Repository
	redis      redis.IRedis
	s3         s3.ItfS3
	mailer     smtp.ItfSmtp
	utils      utils.IUtils
	metrics    metrics.Recorder
}

type Option func(*drowsinessService)

// WithAlertSinks sets where alerts go. Either sink may be nil.
func WithAlertSinks(redisServer redis.IRedis, s3Client s3.ItfS3) Option {
	return func(s *drowsinessService) {
		s.redis = redisServer
		s.s3 = s3Client
	}
}

// WithMailer emails every alert. A nil mailer disables alert mail.
func WithMailer(mailer smtp.ItfSmtp) Option {
	return func(s *drowsinessService) {
		s.mailer = mailer
	}
}

func WithRepository(repo drowsinessRepository.Repository) Option {
	return func(s *drowsinessService) {
		s.repo = repo
	}
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *drowsinessService) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

func NewDrowsinessService(
	log *logrus.Logger,
	models *vision.Models,
	thresholds classifier.Thresholds,
	utils utils.IUtils,
	opts ...Option,
) IDrowsinessService {
	s := &drowsinessService{
		log:        log,
		models:     models,
		thresholds: thresholds,
		utils:      utils,
		metrics:    metrics.Nop{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *drowsinessService) Readiness() error {
	return s.models.Ready()
}

func (s *drowsinessService) Thresholds() classifier.Thresholds {
	return s.thresholds
}
