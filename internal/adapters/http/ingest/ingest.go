// Package ingest is the device-facing HTTP front of the ingestion service.
// Readings are validated, queued and acknowledged before they reach the API.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eldercare-platform/eldercare/internal/adapters/http/api"
	"github.com/eldercare-platform/eldercare/internal/adapters/mq/queue"
	"github.com/eldercare-platform/eldercare/internal/adapters/mq/worker"
	"github.com/eldercare-platform/eldercare/internal/domain/dedupe"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

const maxBodyBytes = 64 << 10

var validate = validator.New()

// Queue is where accepted readings are buffered.
type Queue interface {
	Enqueue(ctx context.Context, r queue.Reading) error
	Len(ctx context.Context) int
	Capacity() int
}

// StatsSource reports forwarding progress.
type StatsSource interface {
	Stats() worker.Stats
}

// Server handles POST /ingest and GET /health.
type Server struct {
	queue  Queue
	stats  StatsSource
	dedupe dedupe.Deduper
	logger logger.Logger

	// admitMu makes record, enqueue and unrecord one step for readings with an id.
	admitMu sync.Mutex
	now    func() time.Time
}

// NewServer creates the ingestion front. stats may be nil.
func NewServer(q Queue, stats StatsSource, opts ...Option) *Server {
	s := &Server{
		queue:  q,
		stats:  stats,
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts the routes on mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("POST /ingest", api.MetricsMiddleware(s.HandleIngest, "ingest"))
	mux.HandleFunc("GET /health", api.MetricsMiddleware(s.HandleHealth, "ingest_health"))
}

type ingestRequest struct {
	DeviceUID  string   `json:"device_uid" validate:"required,max=128"`
	SensorType string   `json:"sensor_type" validate:"required,max=64"`
	Value      *float64 `json:"value" validate:"required"`
	// ReadingID makes retries idempotent when the device sends one.
	ReadingID string `json:"reading_id" validate:"omitempty,max=128"`
}

type ackResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Queued   int    `json:"queued"`
	Capacity int    `json:"capacity"`
	worker.Stats
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// HandleIngest queues one reading. It answers 202 when queued, 200 for a
// repeated reading_id, 400 for invalid input and 429 when the queue is full.
func (s *Server) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decode(r)
	if err == nil {
		err = validate.Struct(req)
	}
	if err != nil {
		metrics.RecordReadingRejected("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}

	reading := queue.Reading{
		DeviceUID:  req.DeviceUID,
		SensorType: req.SensorType,
		Value:      *req.Value,
		ReceivedAt: s.now(),
	}
	duplicate, err := s.admit(ctx, req.ReadingID, reading)
	switch {
	case err != nil:
		s.writeEnqueueError(ctx, w, err)
	case duplicate:
		metrics.RecordReadingRejected("duplicate")
		writeJSON(w, http.StatusOK, ackResponse{OK: true, Status: "duplicate"})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{OK: true, Status: "accepted"})
	}
}

// admit queues r unless id was already queued. A reading that fails to queue
// leaves its id unrecorded, and a concurrent request with the same id only
// sees the outcome after the enqueue attempt.
func (s *Server) admit(ctx context.Context, id string, r queue.Reading) (bool, error) {
	if id == "" || s.dedupe == nil {
		return false, s.queue.Enqueue(ctx, r)
	}
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if s.dedupe.SeenAndRecord(ctx, id) {
		return true, nil
	}
	if err := s.queue.Enqueue(ctx, r); err != nil {
		s.dedupe.Unrecord(ctx, id)
		return false, err
	}
	return false, nil
}

func (s *Server) writeEnqueueError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrFull):
		metrics.RecordReadingRejected("queue_full")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Detail: "queue full"})
	case errors.Is(err, queue.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "shutting down"})
	default:
		s.logger.Error(ctx, "enqueue failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
	}
}

// HandleHealth reports queue depth and forwarding counters.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Queued:   s.queue.Len(r.Context()),
		Capacity: s.queue.Capacity(),
	}
	if s.stats != nil {
		resp.Stats = s.stats.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body, or form and query parameters otherwise.
func decode(r *http.Request) (ingestRequest, error) {
	var req ingestRequest
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid json: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.DeviceUID = r.Form.Get("device_uid")
	req.SensorType = r.Form.Get("sensor_type")
	req.ReadingID = r.Form.Get("reading_id")
	if raw := r.Form.Get("value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errors.New("value must be a number")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return req, errors.New("value must be finite")
		}
		req.Value = &v
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Detail: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
