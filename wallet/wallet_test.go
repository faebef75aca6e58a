package wallet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"swapdesk/models"
)

func writeBalances(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balances.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write balances: %v", err)
	}
	return path
}

func TestFileSourceBalances(t *testing.T) {
	path := writeBalances(t, `balances:
  - currency: ETH
    blockchain: Ethereum
    amount: 1.25
  - currency: OSMO
    blockchain: Osmosis
    amount: "0.000000000000000001"
`)

	got, err := NewFileSource(path).Balances(context.Background())
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(got))
	}
	if got[0].Currency != "ETH" || got[0].Blockchain != "Ethereum" || !got[0].Amount.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("unexpected first balance: %+v", got[0])
	}
	if got[1].Amount.String() != "0.000000000000000001" {
		t.Fatalf("precision lost: %s", got[1].Amount)
	}
}

func TestFileSourceErrors(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yml")).Balances(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := writeBalances(t, "balances:\n  - currency: ETH\n    blockchain: Ethereum\n    amount: lots\n")
	_, err := NewFileSource(path).Balances(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid amount") {
		t.Fatalf("expected invalid amount error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileSource(path).Balances(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestParseBalancesRequiresCurrency(t *testing.T) {
	if _, err := ParseBalances([]byte("balances:\n  - blockchain: Neo\n    amount: 1\n")); err == nil {
		t.Fatalf("expected error for missing currency")
	}
}

func TestParseBalancesRejectsOversizedAmount(t *testing.T) {
	_, err := ParseBalances([]byte("balances:\n  - currency: ETH\n    blockchain: Ethereum\n    amount: \"1e5000000\"\n"))
	if !errors.Is(err, models.ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}
}

func TestStaticReturnsCopy(t *testing.T) {
	s := Static{{Currency: "ETH", Blockchain: "Ethereum", Amount: decimal.NewFromInt(1)}}
	got, _ := s.Balances(context.Background())
	got[0] = models.Balance{Currency: "X"}
	if s[0].Currency != "ETH" {
		t.Fatalf("Static must return a copy")
	}
}
