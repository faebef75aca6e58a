package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SwapRequest is a validated conversion of InputAmount of SourceAsset into
// DestAsset.
type SwapRequest struct {
	ID          uuid.UUID       `json:"id"`
	SourceAsset string          `json:"source_asset"`
	DestAsset   string          `json:"dest_asset"`
	InputAmount decimal.Decimal `json:"input_amount"`
}

// SwapSessionState is the lifecycle position of the single in-flight swap.
type SwapSessionState int

const (
	SwapIdle SwapSessionState = iota
	SwapSubmitting
	SwapConfirmed
	SwapFailed
)

var swapStateNames = map[SwapSessionState]string{
	SwapIdle:       "idle",
	SwapSubmitting: "submitting",
	SwapConfirmed:  "confirmed",
	SwapFailed:     "failed",
}

func (s SwapSessionState) String() string {
	if name, ok := swapStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s SwapSessionState) MarshalText() ([]byte, error) {
	name, ok := swapStateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown swap state %d", int(s))
	}
	return []byte(name), nil
}

func (s *SwapSessionState) UnmarshalText(text []byte) error {
	want := strings.ToLower(string(text))
	for state, name := range swapStateNames {
		if name == want {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown swap state %q", string(text))
}
