package websocketPkg

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"time"

	"DrowsyGuard/pkg/landmark"
	"DrowsyGuard/pkg/vision"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type ILandmarkClient interface {
	vision.LandmarkExtractor
	IsConnected() bool
	Reconnect() error
	Close()
}

type LandmarkRequest struct {
	Image  string    `json:"image"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Region RegionBox `json:"region"`
}

type RegionBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type LandmarkResponse struct {
	Landmarks [][2]float64 `json:"landmarks"`
	Error     string       `json:"error,omitempty"`
}

type landmarkClient struct {
	url          string
	conn         *websocket.Conn
	log          *logrus.Logger
	mu           sync.Mutex
	reqMu        sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	dialer       *websocket.Dialer
}

func NewLandmarkClient(log *logrus.Logger) ILandmarkClient {
	return NewLandmarkClientWithURL(log, getLandmarkServiceURL())
}

func NewLandmarkClientWithURL(log *logrus.Logger, url string) ILandmarkClient {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	client := &landmarkClient{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		dialer:       &dialer,
	}

	go client.connectInBackground()

	return client
}

func (c *landmarkClient) connectInBackground() {
	if _, err := c.ensureConnected(); err != nil {
		c.log.Warnf("Initial connection to landmark service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Infof("Successfully connected to landmark service at %s", c.url)
}

func (c *landmarkClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *landmarkClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	_, err := c.dialLocked()
	return err
}

func (c *landmarkClient) ensureConnected() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}
	return c.dialLocked()
}

func (c *landmarkClient) dialLocked() (*websocket.Conn, error) {
	if c.url == "" {
		return nil, fmt.Errorf("landmark service URL not configured")
	}

	c.log.Debugf("Connecting to landmark service at %s", c.url)

	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return conn, nil
}

func (c *landmarkClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *landmarkClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for landmark service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *landmarkClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// Extract sends the grayscale frame and face box to the landmark service and
// waits for its answer. One request is in flight per connection.
//
// A request whose ctx expires before it is sent leaves the connection alone.
// Expiry while waiting for the answer drops the connection, since a late
// answer would be read by the next request. Either way the returned error
// wraps ctx's error.
func (c *landmarkClient) Extract(ctx context.Context, gray *image.Gray, region vision.FaceRegion) (landmark.Set, error) {
	payload, err := encodeRequest(gray, region)
	if err != nil {
		return nil, err
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if err := expired(ctx); err != nil {
		return nil, fmt.Errorf("landmark request not sent: %w", err)
	}

	conn, err := c.ensureConnected()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to landmark service: %w", err)
	}

	// Writes use the client's own timeout: gorilla connections are unusable
	// after any write error, so only a dead peer may fail a write.
	if err := c.write(conn, payload); err != nil {
		c.log.Warnf("Landmark request failed, reconnecting: %v", err)
		if rErr := c.Reconnect(); rErr != nil {
			return nil, fmt.Errorf("error sending landmark request: %w", err)
		}
		if ctxErr := expired(ctx); ctxErr != nil {
			return nil, fmt.Errorf("landmark request not sent: %w", ctxErr)
		}

		conn, err = c.ensureConnected()
		if err != nil {
			return nil, fmt.Errorf("cannot connect to landmark service: %w", err)
		}
		if err := c.write(conn, payload); err != nil {
			c.dropConnection(conn)
			return nil, fmt.Errorf("error sending landmark request: %w", err)
		}
	}

	conn.SetReadDeadline(c.deadline(ctx, c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConnection(conn)
		if ctxErr := expired(ctx); ctxErr != nil {
			return nil, fmt.Errorf("landmark response not received: %w", ctxErr)
		}
		return nil, fmt.Errorf("error reading landmark response: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	return decodeResponse(message)
}

func (c *landmarkClient) write(conn *websocket.Conn, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// expired reports ctx's error, or DeadlineExceeded once its deadline has
// passed but before its timer has fired.
func expired(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return context.DeadlineExceeded
	}
	return nil
}

func (c *landmarkClient) deadline(ctx context.Context, fallback time.Duration) time.Time {
	d := time.Now().Add(fallback)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func encodeRequest(gray *image.Gray, region vision.FaceRegion) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("error encoding frame for landmark service: %w", err)
	}

	return jsoniter.Marshal(LandmarkRequest{
		Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  gray.Bounds().Dx(),
		Height: gray.Bounds().Dy(),
		Region: RegionBox{
			X1: region.Rect.Min.X,
			Y1: region.Rect.Min.Y,
			X2: region.Rect.Max.X,
			Y2: region.Rect.Max.Y,
		},
	})
}

func decodeResponse(message []byte) (landmark.Set, error) {
	var resp LandmarkResponse
	if err := jsoniter.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmark response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("landmark service error: %s", resp.Error)
	}

	set := make(landmark.Set, len(resp.Landmarks))
	for i, p := range resp.Landmarks {
		set[i] = landmark.Point2D{X: p[0], Y: p[1]}
	}
	return set, nil
}

func getLandmarkServiceURL() string {
	url := os.Getenv("LANDMARK_SERVICE_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/landmarks/ws"
	}
	return url
}
