package metrics

import (
	"testing"
	"time"
)

func TestSubscribeReceivesTypedEvents(t *testing.T) {
	events := make(chan Event, 1)
	unsubscribe := Subscribe(func(ev Event) { events <- ev }, KindSwapTransition)
	t.Cleanup(unsubscribe)

	IncSwapTransition("confirmed")

	select {
	case ev := <-events:
		if ev.Kind != KindSwapTransition || ev.Component != "swap_session" || ev.Name != "swap_transitions" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Type != "counter" || ev.Unit != "count" || ev.Value != 1 || ev.Labels["state"] != "confirmed" {
			t.Fatalf("unexpected event shape: %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("subscriber not invoked")
	}
}

func TestSubscribeFiltersByKind(t *testing.T) {
	events := make(chan Event, 4)
	unsubscribe := Subscribe(func(ev Event) { events <- ev }, KindPricedAssets)
	t.Cleanup(unsubscribe)

	SetWebsocketClients(2)
	SetPricedAssets(7)

	select {
	case ev := <-events:
		if ev.Kind != KindPricedAssets || ev.Value != 7 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("subscriber not invoked")
	}
	select {
	case ev := <-events:
		t.Fatalf("filtered subscriber got %+v", ev)
	default:
	}
}

func TestSubscribeAllKindsAndUnsubscribe(t *testing.T) {
	var got []Kind
	unsubscribe := Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	ObservePriceFetch("test_feed", 5*time.Millisecond, nil)
	SetWebsocketClients(1)
	unsubscribe()
	unsubscribe()
	SetPricedAssets(1)

	if len(got) != 2 || got[0] != KindPriceFetch || got[1] != KindWebsocketClients {
		t.Fatalf("unexpected kinds: %v", got)
	}
}

func TestRecordCopiesLabels(t *testing.T) {
	labels := map[string]string{"source": "http", "result": "success"}
	ev, ok := record(KindPriceFetch, 12.5, labels)
	if !ok {
		t.Fatal("known kind was dropped")
	}
	labels["source"] = "changed"
	if ev.Labels["source"] != "http" || ev.Unit != "milliseconds" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestRecordUnknownKind(t *testing.T) {
	called := false
	unsubscribe := Subscribe(func(Event) { called = true })
	t.Cleanup(unsubscribe)

	if _, ok := record(Kind("unknown"), 1, nil); ok || called {
		t.Fatalf("unknown kind should be dropped")
	}
}

func TestSubscribeNil(t *testing.T) {
	unsubscribe := Subscribe(nil)
	unsubscribe()
}
