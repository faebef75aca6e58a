package conversion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"swapdesk/models"
	"swapdesk/pricebook"
)

func TestFormQuote(t *testing.T) {
	f := NewForm(NewSession(instantSettler(), time.Second), "USD", "ETH")
	f.SetAmount("15")
	f.SetSource("ETH")
	f.SetDestination("USD")

	q := f.Quote(testBook())
	if q.Source != "ETH" || q.Dest != "USD" {
		t.Fatalf("unexpected pair: %+v", q)
	}
	if !q.Rate.Equal(decimal.RequireFromString("1645.93")) {
		t.Fatalf("rate = %s", q.Rate)
	}
	if q.Output != "24688.950000" || !q.AmountValid || q.State != models.SwapIdle {
		t.Fatalf("unexpected quote: %+v", q)
	}

	f.SetAmount("-1")
	if q := f.Quote(testBook()); q.AmountValid || q.Output != "" {
		t.Fatalf("negative amount should be flagged: %+v", q)
	}
}

func TestFormReconcileFallsBack(t *testing.T) {
	book := pricebook.Build([]models.PriceObservation{
		{Asset: "BLUR", Price: decimal.RequireFromString("0.2")},
		{Asset: "ATOM", Price: decimal.RequireFromString("7.1")},
		{Asset: "WBTC", Price: decimal.RequireFromString("26000")},
	})
	f := NewForm(nil, "USD", "ETH")
	f.Reconcile(book)

	src, dst, _ := f.Selection()
	if src != "ATOM" || dst != "BLUR" {
		t.Fatalf("fallback pair = %s -> %s, want ATOM -> BLUR", src, dst)
	}

	kept := NewForm(nil, "WBTC", "ATOM")
	kept.Reconcile(book)
	if src, dst, _ := kept.Selection(); src != "WBTC" || dst != "ATOM" {
		t.Fatalf("priced selection changed: %s -> %s", src, dst)
	}

	empty := NewForm(nil, "USD", "ETH")
	empty.Reconcile(pricebook.Build(nil))
	if src, dst, _ := empty.Selection(); src != "USD" || dst != "ETH" {
		t.Fatalf("empty book changed selection: %s -> %s", src, dst)
	}
}

func TestFormSwapDirectionKeepsAmount(t *testing.T) {
	f := NewForm(nil, "USD", "ETH")
	f.SetAmount("42")
	f.SwapDirection()

	src, dst, amount := f.Selection()
	if src != "ETH" || dst != "USD" || amount != "42" {
		t.Fatalf("unexpected selection: %s %s %s", src, dst, amount)
	}
}

func TestFormSetAmountClearsFinishedSwap(t *testing.T) {
	s := NewSession(instantSettler(), time.Minute)
	defer s.Close()
	states := recordStates(s)
	f := NewForm(s, "USD", "ETH")
	f.SetAmount("5")

	if _, err := f.Submit(context.Background(), testBook()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	expectState(t, states, models.SwapSubmitting)
	expectState(t, states, models.SwapConfirmed)

	f.SetAmount("6")
	expectState(t, states, models.SwapIdle)
	if q := f.Quote(testBook()); q.State != models.SwapIdle {
		t.Fatalf("status not cleared: %+v", q)
	}
}
