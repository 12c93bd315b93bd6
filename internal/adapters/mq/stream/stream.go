// Package stream carries detection events over Redis Streams.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

// Field names inside a stream entry.
const (
	fieldData      = "data"
	fieldTimestamp = "timestamp"
)

// StartFromNewest reads only entries added after the first call.
const StartFromNewest = "$"

// DefaultBlock is how long Read waits for entries when no block is configured.
const DefaultBlock = 5 * time.Second

// ErrDecode marks an entry whose payload is not a detection event.
var ErrDecode = errors.New("undecodable stream entry")

// Message is one decoded stream entry.
type Message struct {
	ID    string
	Event model.DetectionEvent
}

// Publisher appends events to a stream.
type Publisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewPublisher creates a publisher. maxLen > 0 approximately caps the stream length.
func NewPublisher(client redis.Cmdable, stream string, maxLen int64) *Publisher {
	return &Publisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends ev as JSON and returns the entry id.
func (p *Publisher) Publish(ctx context.Context, ev model.DetectionEvent) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			fieldData:      string(body),
			fieldTimestamp: strconv.FormatInt(ev.Timestamp.Unix(), 10),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return id, nil
}

// Consumer reads a stream from a cursor.
type Consumer struct {
	client redis.Cmdable
	stream string
	block  time.Duration
	count  int64
	lastID string
}

// NewConsumer creates a consumer starting at from ("$" for new entries, "0" for all).
// A non-positive block uses DefaultBlock; XREAD BLOCK 0 would wait forever.
func NewConsumer(client redis.Cmdable, stream, from string, block time.Duration, count int64) *Consumer {
	if from == "" {
		from = StartFromNewest
	}
	if block <= 0 {
		block = DefaultBlock
	}
	if count <= 0 {
		count = 10
	}
	return &Consumer{client: client, stream: stream, block: block, count: count, lastID: from}
}

// Read blocks up to the configured duration and returns the next batch.
// An empty batch with a nil error means the block timed out.
// Entries that fail to decode are skipped and reported through the returned error
// together with the valid messages.
func (c *Consumer) Read(ctx context.Context) ([]Message, error) {
	res, err := c.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{c.stream, c.lastID},
		Count:   c.count,
		Block:   c.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xread %s: %w", c.stream, err)
	}

	var (
		out  []Message
		errs []error
	)
	for _, s := range res {
		for _, m := range s.Messages {
			c.lastID = m.ID
			ev, err := decode(m.Values)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %w", ErrDecode, m.ID, err))
				continue
			}
			out = append(out, Message{ID: m.ID, Event: ev})
		}
	}
	return out, errors.Join(errs...)
}

// LastID returns the cursor position.
func (c *Consumer) LastID() string { return c.lastID }

func decode(values map[string]interface{}) (model.DetectionEvent, error) {
	raw, ok := values[fieldData].(string)
	if !ok {
		return model.DetectionEvent{}, errors.New("missing data field")
	}
	var ev model.DetectionEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return model.DetectionEvent{}, err
	}
	return ev, nil
}
