package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"DrowsyGuard/database/postgres"
	drowsinessHandler "DrowsyGuard/internal/api/drowsiness/handler"
	drowsinessRepository "DrowsyGuard/internal/api/drowsiness/repository"
	drowsinessService "DrowsyGuard/internal/api/drowsiness/service"
	"DrowsyGuard/internal/middleware"
	"DrowsyGuard/pkg/classifier"
	"DrowsyGuard/pkg/metrics"
	"DrowsyGuard/pkg/redis"
	"DrowsyGuard/pkg/s3"
	"DrowsyGuard/pkg/smtp"
	"DrowsyGuard/pkg/utils"
	"DrowsyGuard/pkg/vision"
	websocketPkg "DrowsyGuard/pkg/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	redisServer    redis.IRedis
	s3Client       s3.ItfS3
	smtpMailer     smtp.ItfSmtp
	landmarkClient websocketPkg.ILandmarkClient
	models         *vision.Models
	thresholds     classifier.Thresholds
	metrics        *metrics.Metrics
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		thresholds: classifier.DefaultThresholds(),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.models == nil {
		return nil, fmt.Errorf("vision models are required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects to postgres. Without DB_HOST the detection log is
// disabled and the server runs without a database.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		if os.Getenv("DB_HOST") == "" {
			if s.log != nil {
				s.log.Warn("DB_HOST not set, detection log disabled")
			}
			return nil
		}

		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if client == nil && s.log != nil {
			s.log.Warn("AWS_BUCKET_NAME not set, alert snapshots will not be uploaded")
		}
		s.s3Client = client
		return nil
	}
}

func WithSMTPMailer(smtpMailer smtp.ItfSmtp) ServerOption {
	return func(s *Server) error {
		s.smtpMailer = smtpMailer
		return nil
	}
}

func WithLandmarkClient(client websocketPkg.ILandmarkClient) ServerOption {
	return func(s *Server) error {
		s.landmarkClient = client
		return nil
	}
}

func WithModels(models *vision.Models) ServerOption {
	return func(s *Server) error {
		s.models = models
		return nil
	}
}

func WithThresholds(thresholds classifier.Thresholds) ServerOption {
	return func(s *Server) error {
		s.thresholds = thresholds
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	serviceOpts := []drowsinessService.Option{
		drowsinessService.WithAlertSinks(s.redisServer, s.s3Client),
		drowsinessService.WithMailer(s.smtpMailer),
	}
	if s.db != nil {
		serviceOpts = append(serviceOpts, drowsinessService.WithRepository(drowsinessRepository.New(s.db, s.log)))
	}
	if s.metrics != nil {
		serviceOpts = append(serviceOpts, drowsinessService.WithMetrics(s.metrics))
	}

	drowsinessServices := drowsinessService.NewDrowsinessService(s.log, s.models, s.thresholds, s.utils, serviceOpts...)
	drowsinessHandlers := drowsinessHandler.New(s.log, s.validator, s.middleware, drowsinessServices, s.utils)

	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, drowsinessHandlers)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Run() error {
	if err := s.models.Ready(); err != nil {
		return fmt.Errorf("refusing to serve: %w", err)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting frames and releases the external connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)

	if s.landmarkClient != nil {
		s.landmarkClient.Close()
	}
	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})

	if s.redisServer != nil {
		s.engine.Get("/health/redis", func(ctx *fiber.Ctx) error {
			c, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
			defer cancel()

			if err := s.redisServer.Ping(c); err != nil {
				return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
			}
			return ctx.JSON(fiber.Map{"message": "Redis is Healthy!"})
		})
	}
}

func (s *Server) setupMetrics() {
	if s.metrics == nil {
		return
	}
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
}
