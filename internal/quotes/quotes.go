// Package quotes keeps the price book the desk quotes from and tracks whether
// the last fetch succeeded.
package quotes

import (
	"context"
	"errors"
	"sync"
	"time"

	"swapdesk/internal/metrics"
	"swapdesk/logger"
	"swapdesk/pricebook"
	"swapdesk/reader"
)

type State string

const (
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateRefreshing  State = "refreshing"
	StateUnavailable State = "unavailable"
)

// ErrLoadInProgress is returned by Load while another fetch is running.
var ErrLoadInProgress = errors.New("price load already in progress")

type Status struct {
	State     State     `json:"state"`
	Source    string    `json:"source"`
	Error     string    `json:"error,omitempty"`
	Assets    int       `json:"assets"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store holds the current price book. A failed fetch leaves the store
// unavailable until Load is called again; nothing retries on its own.
type Store struct {
	feed   reader.PriceFeed
	source string
	log    *logger.Log

	mu       sync.RWMutex
	book     *pricebook.Book
	status   Status
	fetching bool

	listeners []func(*pricebook.Book)
}

func NewStore(feed reader.PriceFeed, source string) *Store {
	return &Store{
		feed:   feed,
		source: source,
		log:    logger.GetLogger(),
		status: Status{State: StateLoading, Source: source, UpdatedAt: time.Now().UTC()},
	}
}

// OnBookChange registers fn to run after every successful load.
func (s *Store) OnBookChange(fn func(*pricebook.Book)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load fetches the feed once and replaces the book. The current book keeps
// being served while the fetch runs (state refreshing). A load abandoned
// through ctx leaves the previous book and status in place.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return ErrLoadInProgress
	}
	s.fetching = true
	previous := s.status
	if s.book != nil {
		s.status.State = StateRefreshing
	} else {
		s.status.State = StateLoading
	}
	s.status.Error = ""
	s.status.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	log := s.log.WithComponent("quotes").WithFields(logger.Fields{"source": s.source, "operation": "load"})

	start := time.Now()
	observations, err := s.feed.FetchPrices(ctx)
	duration := time.Since(start)
	metrics.ObservePriceFetch(s.source, duration, err)

	s.mu.Lock()
	s.fetching = false
	if err != nil && ctx.Err() != nil {
		if previous.State == StateLoading && s.book == nil {
			previous.State = StateUnavailable
			previous.Error = err.Error()
			previous.UpdatedAt = time.Now().UTC()
		}
		s.status = previous
		s.mu.Unlock()

		log.WithError(err).Warn("price load abandoned")
		return err
	}
	s.status.UpdatedAt = time.Now().UTC()
	if err != nil {
		s.book = nil
		s.status.State = StateUnavailable
		s.status.Error = err.Error()
		s.status.Assets = 0
		s.mu.Unlock()

		log.WithError(err).Error("prices unavailable")
		return err
	}

	book := pricebook.Build(observations)
	s.book = book
	s.status.State = StateReady
	s.status.Assets = book.Len()
	listeners := make([]func(*pricebook.Book), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	metrics.SetPricedAssets(book.Len())
	logger.LogPerformanceEntry(log, "quotes", "load", duration, logger.Fields{"observations": len(observations), "assets": book.Len()})

	for _, fn := range listeners {
		fn(book)
	}
	return nil
}

// Book returns the current price book, or nil when none is available.
func (s *Store) Book() *pricebook.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
