package conversion

import (
	"context"
	"time"

	"swapdesk/models"
)

// Settler finalizes a submitted swap. Implementations must return once ctx is
// cancelled.
type Settler interface {
	Execute(ctx context.Context, req models.SwapRequest) error
}

// SettlerFunc adapts a function to Settler.
type SettlerFunc func(ctx context.Context, req models.SwapRequest) error

func (f SettlerFunc) Execute(ctx context.Context, req models.SwapRequest) error {
	return f(ctx, req)
}

// DefaultSettlementLatency matches the delay of the hosted swap form.
const DefaultSettlementLatency = 1500 * time.Millisecond

// SimulatedSettler accepts every swap after Latency.
type SimulatedSettler struct {
	Latency time.Duration
}

func (s SimulatedSettler) Execute(ctx context.Context, _ models.SwapRequest) error {
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
