// Package forwarder posts ingested readings to the API server.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultRetries       = 2
	defaultRetryWait     = 100 * time.Millisecond
	defaultRetryMaxWait  = 2 * time.Second
	devicesDataPathFmt   = "/api/v1/devices/%s/data"
	retryableStatusFloor = http.StatusInternalServerError
)

var (
	// ErrUnknownDevice is returned when the API does not know the device.
	ErrUnknownDevice = errors.New("device not found")
	// ErrRejected is returned for any other non-2xx response.
	ErrRejected = errors.New("reading rejected by api")
)

// Client forwards readings with resty.
type Client struct {
	http   *resty.Client
	logger logger.Logger

	timeout time.Duration
	retries int
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		logger:  logger.Nop(),
		timeout: defaultTimeout,
		retries: defaultRetries,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(c.timeout).
		SetRetryCount(c.retries).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= retryableStatusFloor
		})
	return c
}

// Forward posts one reading. Parameters go in the query string, which the API accepts
// alongside form bodies.
func (c *Client) Forward(ctx context.Context, r model.Reading) error {
	start := time.Now()
	defer func() {
		metrics.RecordForwardLatency(float64(time.Since(start).Milliseconds()))
	}()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sensor_type": r.SensorType,
			"value":       strconv.FormatFloat(r.Value, 'f', -1, 64),
		}).
		Post(fmt.Sprintf(devicesDataPathFmt, url.PathEscape(r.DeviceUID)))
	if err != nil {
		metrics.RecordForwardError()
		return fmt.Errorf("forward %s: %w", r.DeviceUID, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		metrics.RecordForwardError()
		return fmt.Errorf("forward %s: %w", r.DeviceUID, ErrUnknownDevice)
	case code < 200 || code >= 300:
		metrics.RecordForwardError()
		c.logger.Warn(ctx, "api rejected reading",
			logger.String("device_uid", r.DeviceUID),
			logger.Int("status", code),
			logger.String("body", resp.String()))
		return fmt.Errorf("forward %s: status %d: %w", r.DeviceUID, code, ErrRejected)
	}

	metrics.RecordReadingForwarded()
	return nil
}
