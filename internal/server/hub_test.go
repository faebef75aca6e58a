package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"swapdesk/models"
)

func readEvent(t *testing.T, conn *websocket.Conn) event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestWebsocketStreamsSwapEvents(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, staticFeed{obs: testPrices}, blockingSettler(release), nil)

	ts := httptest.NewServer(f.router)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if ev := readEvent(t, conn); ev.Type != "prices" || ev.Prices == nil || ev.Prices.Assets != 3 {
		t.Fatalf("unexpected first event: %+v", ev)
	}
	if ev := readEvent(t, conn); ev.Type != "swap" || ev.Swap == nil || ev.Swap.State != models.SwapIdle {
		t.Fatalf("unexpected second event: %+v", ev)
	}

	resp, err := http.Post(ts.URL+"/swap", "application/json", strings.NewReader(`{"from":"ETH","to":"USD","amount":"1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	if ev := readEvent(t, conn); ev.Swap == nil || ev.Swap.State != models.SwapSubmitting {
		t.Fatalf("expected submitting event, got %+v", ev)
	}
	close(release)
	if ev := readEvent(t, conn); ev.Swap == nil || ev.Swap.State != models.SwapConfirmed {
		t.Fatalf("expected confirmed event, got %+v", ev)
	}
	if ev := readEvent(t, conn); ev.Swap == nil || ev.Swap.State != models.SwapIdle {
		t.Fatalf("expected idle event, got %+v", ev)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	f := newFixture(t, staticFeed{obs: testPrices}, nil, nil)
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readEvent(t, conn)
	readEvent(t, conn)

	if n := f.srv.hub.Len(); n != 1 {
		t.Fatalf("expected one client, got %d", n)
	}
	f.srv.hub.Close()
	if n := f.srv.hub.Len(); n != 0 {
		t.Fatalf("expected no clients after close, got %d", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to be closed")
	}
}
