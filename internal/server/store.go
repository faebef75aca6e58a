package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"swapdesk/internal/metrics"
)

// ring keeps the newest limit items appended to it.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newRing[T any](limit int) *ring[T] {
	if limit <= 0 {
		limit = 200
	}
	return &ring[T]{limit: limit}
}

func (r *ring[T]) add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, item)
	if len(r.items) > r.limit {
		r.items = append([]T(nil), r.items[len(r.items)-r.limit:]...)
	}
}

// last returns up to n of the newest items, oldest first. n <= 0 returns all.
func (r *ring[T]) last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.items
	if n > 0 && n < len(items) {
		items = items[len(items)-n:]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// metricStore keeps the most recent events recorded by the metrics package.
type metricStore struct {
	*ring[metrics.Event]
}

func newMetricStore(limit int) *metricStore {
	return &metricStore{ring: newRing[metrics.Event](limit)}
}

func (s *metricStore) handle(ev metrics.Event) {
	s.add(ev)
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logStore is a logrus hook that keeps the most recent log entries.
type logStore struct {
	*ring[logRecord]
	enabled atomic.Bool
}

func newLogStore(limit int) *logStore {
	ls := &logStore{ring: newRing[logRecord](limit)}
	ls.enabled.Store(true)
	return ls
}

func (s *logStore) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		record.Component = component
	}

	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				record.Fields[k] = val.Error()
			case fmt.Stringer:
				record.Fields[k] = val.String()
			default:
				record.Fields[k] = val
			}
		}
	}

	s.add(record)
	return nil
}

func (s *logStore) close() {
	s.enabled.Store(false)
}
