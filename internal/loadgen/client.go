package loadgen

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeThrottled
	outcomeRejected
	outcomeFailed
)

type client struct {
	rc *resty.Client
}

func newClient(cfg Config) *client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &client{rc: rc}
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.rc.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode())
	}
	return nil
}

func (c *client) send(ctx context.Context, r Reading) outcome {
	resp, err := c.rc.R().SetContext(ctx).SetBody(r).Post("/ingest")
	if err != nil {
		return outcomeFailed
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusAccepted:
		return outcomeAccepted
	case code == http.StatusOK:
		return outcomeDuplicate
	case code == http.StatusTooManyRequests:
		return outcomeThrottled
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
