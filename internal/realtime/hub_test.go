package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmehra7/loanbook/internal/loans"
	"github.com/pmehra7/loanbook/internal/scoring"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func decisionEvent(customerID, status string, amount float64) *Event {
	return &Event{
		Type:      EventApplicationDecided,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"customer_id": customerID,
			"status":      status,
			"loan_amount": amount,
		},
	}
}

func TestShouldSendFilters(t *testing.T) {
	hub := NewHub(testLogger())

	cases := []struct {
		name  string
		sub   Subscription
		event *Event
		want  bool
	}{
		{"all events", Subscription{AllEvents: true}, decisionEvent("c1", "Approved", 100), true},
		{"type match", Subscription{EventTypes: []EventType{EventApplicationDecided}}, decisionEvent("c1", "Approved", 100), true},
		{"type mismatch", Subscription{EventTypes: []EventType{EventNPAMarked}}, decisionEvent("c1", "Approved", 100), false},
		{"customer match", Subscription{CustomerIDs: []string{"c1"}}, decisionEvent("c1", "Approved", 100), true},
		{"customer mismatch", Subscription{CustomerIDs: []string{"other"}}, decisionEvent("c1", "Approved", 100), false},
		{"status match", Subscription{Statuses: []string{"Rejected"}}, decisionEvent("c1", "Rejected", 100), true},
		{"status mismatch", Subscription{Statuses: []string{"Rejected"}}, decisionEvent("c1", "Approved", 100), false},
		{"above min amount", Subscription{MinAmount: 50}, decisionEvent("c1", "Approved", 100), true},
		{"below min amount", Subscription{MinAmount: 500000}, decisionEvent("c1", "Approved", 100), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &Client{sub: tc.sub}
			assert.Equal(t, tc.want, hub.shouldSend(client, tc.event))
		})
	}
}

func TestHubBroadcastToClient(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the register message time to land before broadcasting.
	require.Eventually(t, func() bool {
		return hub.Stats()["connectedClients"].(int) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(decisionEvent("c1", "Approved", 750000))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(message, &got))
	assert.Equal(t, EventApplicationDecided, got.Type)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, "Approved", data["status"])
}

func TestClientTeardownAfterHubStops(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.Stats()["connectedClients"].(int) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	// The stopped hub closes the connection; the client sees it and the
	// server-side pumps must wind down instead of blocking on unregister.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// New upgrade attempts are refused once the hub has stopped.
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNotifierEmitsDisbursalForApprovals(t *testing.T) {
	hub := NewHub(testLogger())
	notifier := NewNotifier(hub)

	app := &loans.Application{
		ID: "app-1", CustomerID: "c1", CustomerName: "Arjun Sharma",
		Amount: 1000000, Purpose: "Home Purchase", Status: loans.StatusApproved,
	}
	pred := &scoring.Prediction{CreditScore: 795, RiskLevel: scoring.RiskLow}

	notifier.ApplicationDecided(context.Background(), app, pred)

	// Approved applications produce a decision event plus a disbursal event.
	first := <-hub.broadcast
	assert.Equal(t, EventApplicationDecided, first.Type)
	second := <-hub.broadcast
	assert.Equal(t, EventLoanDisbursed, second.Type)

	app.Status = loans.StatusRejected
	notifier.ApplicationDecided(context.Background(), app, pred)
	only := <-hub.broadcast
	assert.Equal(t, EventApplicationDecided, only.Type)
	select {
	case extra := <-hub.broadcast:
		t.Fatalf("unexpected extra event %s", extra.Type)
	default:
	}
}
