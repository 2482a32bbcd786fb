package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBatch    = 100
	defaultInterval = 500 * time.Millisecond
	defaultRetry    = 5 * time.Second
	defaultSource   = "app://stayquote"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains the outbox into the broker as CloudEvents. One topic per
// aggregate family: "timeframe.inserted" goes to "<prefix>timeframe.events.v1".
type Worker struct {
	Queue       Queue
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	// Backoff[n] is the delay after the n-th failed attempt; the last entry repeats.
	Backoff []time.Duration
	Batch   int
	Logger  *slog.Logger
	Now     func() time.Time
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := w.Drain(ctx); err != nil {
			return err
		}
	}
}

// Drain handles at most one batch of due records and reports how many were
// published. Publish failures are rescheduled and do not stop the drain.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	limit := w.Batch
	if limit <= 0 {
		limit = defaultBatch
	}
	sent := 0
	for i := 0; i < limit; i++ {
		rec, err := w.Queue.Claim(ctx, w.ID)
		if err != nil {
			return sent, err
		}
		if rec == nil {
			return sent, nil
		}
		if err := w.publish(ctx, rec); err != nil {
			if w.Logger != nil {
				w.Logger.Warn("outbox publish failed", "event_id", rec.ID, "event", rec.Name, "attempts", rec.Attempts, "error", err)
			}
			if err := w.Queue.MarkFailed(ctx, rec.ID, w.retryAt(rec.Attempts), err.Error()); err != nil {
				return sent, err
			}
			continue
		}
		if err := w.Queue.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) publish(ctx context.Context, rec *Pending) error {
	if !json.Valid(rec.Payload) {
		return fmt.Errorf("event %s: payload is not json", rec.ID)
	}
	source := w.Source
	if source == "" {
		source = defaultSource
	}
	body, err := json.Marshal(cloudEvent{
		SpecVersion:     "1.0",
		ID:              rec.ID,
		Type:            rec.Name + ".v1",
		Source:          source,
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt,
		DataContentType: "application/json",
		TraceParent:     rec.Headers["traceparent"],
		Data:            rec.Payload,
	})
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(rec.Headers)+1)
	for k, v := range rec.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	return w.Producer.Publish(ctx, w.topic(rec.Name), rec.Aggregate, body, headers)
}

func (w *Worker) topic(eventName string) string {
	family, _, _ := strings.Cut(eventName, ".")
	return w.TopicPrefix + family + ".events.v1"
}

func (w *Worker) retryAt(attempts int) time.Time {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	delay := defaultRetry
	switch {
	case attempts < len(w.Backoff):
		delay = w.Backoff[attempts]
	case len(w.Backoff) > 0:
		delay = w.Backoff[len(w.Backoff)-1]
	}
	return now().Add(delay)
}

// LogProducer stands in for kafka when no brokers are configured.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.Logger != nil {
		p.Logger.Debug("event published", "topic", topic, "key", key, "bytes", len(payload))
	}
	return nil
}
