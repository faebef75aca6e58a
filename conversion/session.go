package conversion

import (
	"context"
	"errors"
	"sync"
	"time"

	"swapdesk/logger"
	"swapdesk/models"
	"swapdesk/pricebook"
)

// DefaultConfirmationWindow is how long a confirmed swap stays visible.
const DefaultConfirmationWindow = 3 * time.Second

// ErrNotSubmitting is returned by Cancel when nothing is being settled.
var ErrNotSubmitting = errors.New("no swap is being settled")

// Snapshot is the view of a session at one point in time.
type Snapshot struct {
	State     models.SwapSessionState `json:"state"`
	Request   *models.SwapRequest     `json:"request,omitempty"`
	Invalid   bool                    `json:"invalid"`
	Error     string                  `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Listener receives a snapshot after every state change. Listeners run on the
// goroutine that caused the change and must not block.
type Listener func(Snapshot)

// Session owns the one swap a desk may have in flight:
//
//	Idle -> Submitting -> Confirmed -> Idle (after the confirmation window)
//	                   -> Failed    -> Idle (on Acknowledge)
type Session struct {
	mu            sync.Mutex
	settler       Settler
	confirmWindow time.Duration
	log           *logger.Log

	state      models.SwapSessionState
	request    *models.SwapRequest
	invalid    bool
	lastErr    string
	updatedAt  time.Time
	generation uint64
	cancel     context.CancelFunc
	resetTimer *time.Timer
	closed     bool

	listeners      map[int]Listener
	nextListenerID int

	wg sync.WaitGroup
}

// NewSession creates an idle session. A nil settler settles through
// SimulatedSettler with DefaultSettlementLatency.
func NewSession(settler Settler, confirmationWindow time.Duration) *Session {
	if settler == nil {
		settler = SimulatedSettler{Latency: DefaultSettlementLatency}
	}
	if confirmationWindow <= 0 {
		confirmationWindow = DefaultConfirmationWindow
	}
	return &Session{
		settler:       settler,
		confirmWindow: confirmationWindow,
		log:           logger.GetLogger(),
		updatedAt:     time.Now().UTC(),
		listeners:     make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) State() models.SwapSessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit validates the selection and starts settling it. ctx bounds the
// settlement; cancelling it fails the swap. A rejected selection leaves the
// session idle with the invalid flag raised.
func (s *Session) Submit(ctx context.Context, book pricebook.Lookuper, src, dst, amount string) (models.SwapRequest, error) {
	s.mu.Lock()
	if s.state != models.SwapIdle {
		state := s.state
		s.mu.Unlock()
		s.log.WithComponent("swap_session").WithFields(logger.Fields{"state": state.String()}).Debug("submit rejected while busy")
		return models.SwapRequest{}, ErrBusy
	}

	req, err := NewRequest(book, src, dst, amount)
	if err != nil {
		s.invalid = true
		s.lastErr = err.Error()
		snap, listeners := s.changedLocked()
		s.mu.Unlock()
		notify(listeners, snap)
		return models.SwapRequest{}, err
	}

	s.generation++
	gen := s.generation
	settleCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = models.SwapSubmitting
	s.request = &req
	s.invalid = false
	s.lastErr = ""
	snap, listeners := s.changedLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.WithComponent("swap_session").WithFields(logger.Fields{
		"request_id":  req.ID.String(),
		"source":      req.SourceAsset,
		"destination": req.DestAsset,
		"amount":      req.InputAmount.String(),
	}).Info("swap submitted")

	notify(listeners, snap)
	go s.settle(settleCtx, cancel, gen, req)
	return req, nil
}

func (s *Session) settle(ctx context.Context, cancel context.CancelFunc, gen uint64, req models.SwapRequest) {
	defer s.wg.Done()
	defer cancel()

	start := time.Now()
	err := s.settler.Execute(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	s.mu.Lock()
	if s.generation != gen || s.state != models.SwapSubmitting {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	if err != nil {
		s.state = models.SwapFailed
		s.lastErr = err.Error()
	} else {
		s.state = models.SwapConfirmed
	}
	snap, listeners := s.changedLocked()
	s.mu.Unlock()

	log := s.log.WithComponent("swap_session").WithFields(logger.Fields{"request_id": req.ID.String()})
	logger.LogPerformanceEntry(log, "swap_session", "settle", time.Since(start), logger.Fields{"state": snap.State.String()})
	if err != nil {
		log.WithError(err).Warn("swap settlement failed")
	}

	notify(listeners, snap)
	if snap.State == models.SwapConfirmed {
		s.armReset(gen)
	}
}

// armReset starts the confirmation window once listeners have seen the
// confirmation.
func (s *Session) armReset(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen || s.state != models.SwapConfirmed || s.resetTimer != nil {
		return
	}
	s.resetTimer = time.AfterFunc(s.confirmWindow, func() { s.expire(gen) })
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if s.generation != gen || s.state != models.SwapConfirmed {
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	snap, listeners := s.changedLocked()
	s.mu.Unlock()
	notify(listeners, snap)
}

// Cancel aborts the swap being settled. The session ends up Failed.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state != models.SwapSubmitting || s.cancel == nil {
		s.mu.Unlock()
		return ErrNotSubmitting
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	return nil
}

// Acknowledge dismisses a confirmed or failed swap and clears the invalid
// flag. It is rejected while a swap is being settled.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	switch s.state {
	case models.SwapSubmitting:
		s.mu.Unlock()
		return ErrBusy
	case models.SwapIdle:
		if !s.invalid && s.lastErr == "" {
			s.mu.Unlock()
			return nil
		}
	}
	s.resetLocked()
	snap, listeners := s.changedLocked()
	s.mu.Unlock()
	notify(listeners, snap)
	return nil
}

// Close cancels any settlement and waits for it to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) resetLocked() {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.state = models.SwapIdle
	s.request = nil
	s.invalid = false
	s.lastErr = ""
}

func (s *Session) changedLocked() (Snapshot, []Listener) {
	s.updatedAt = time.Now().UTC()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return s.snapshotLocked(), listeners
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     s.state,
		Invalid:   s.invalid,
		Error:     s.lastErr,
		UpdatedAt: s.updatedAt,
	}
	if s.request != nil {
		req := *s.request
		snap.Request = &req
	}
	return snap
}

func notify(listeners []Listener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
