package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"DrowsyGuard/internal/entity"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	AlertChannel = "drowsiness:alerts"
	lastAlertKey = "drowsiness:last_alert:%s"
	lastAlertTTL = 24 * time.Hour
)

type IRedis interface {
	PublishAlert(ctx context.Context, alert entity.DrowsinessAlert) error
	GetLastAlert(ctx context.Context, source string) (*entity.DrowsinessAlert, error)
	Ping(ctx context.Context) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return NewFromClient(client)
}

func NewFromClient(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PublishAlert fans the alert out on AlertChannel and keeps it as the latest
// alert of its source for a day.
func (r *redisClient) PublishAlert(ctx context.Context, alert entity.DrowsinessAlert) error {
	payload, err := jsoniter.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	logrus.Debug(fmt.Sprintf("Publishing %s alert for source %s", alert.Status, alert.Source))

	pipe := r.client.TxPipeline()
	pipe.Publish(ctx, AlertChannel, payload)
	pipe.Set(ctx, fmt.Sprintf(lastAlertKey, alert.Source), payload, lastAlertTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Error(fmt.Sprintf("Error publishing alert for source %s: %v", alert.Source, err))
		return err
	}

	return nil
}

// GetLastAlert returns nil, nil when the source has no alert on record.
func (r *redisClient) GetLastAlert(ctx context.Context, source string) (*entity.DrowsinessAlert, error) {
	val, err := r.client.Get(ctx, fmt.Sprintf(lastAlertKey, source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting last alert for source %s: %v", source, err))
		return nil, err
	}

	var alert entity.DrowsinessAlert
	if err := jsoniter.Unmarshal(val, &alert); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return &alert, nil
}
