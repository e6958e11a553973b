package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// idleWSServer accepts a connection and reads until it closes.
func idleWSServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_Connect(t *testing.T) {
	client, err := NewWSClient(context.Background(), idleWSServer(t), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeProgram(t *testing.T) {
	requests := make(chan wsRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		requests <- req

		resp := wsSubscribeResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  777,
		}
		if err := c.WriteJSON(resp); err != nil {
			t.Errorf("write response: %v", err)
			return
		}

		time.Sleep(50 * time.Millisecond)
		notif := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "programNotification",
			"params": map[string]interface{}{
				"subscription": 777,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 100},
					"value": map[string]interface{}{
						"pubkey": "pool1",
						"account": map[string]interface{}{
							"lamports":   uint64(42),
							"owner":      "prog",
							"data":       []string{"AAEC", "base64"},
							"executable": false,
							"rentEpoch":  uint64(0),
						},
					},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeProgram(ctx, ProgramFilter{
		ProgramID: "prog",
		DataSize:  752,
		Memcmp:    []Memcmp{{Offset: 432, Bytes: WrappedSOLMint.String()}},
	})
	if err != nil {
		t.Fatalf("SubscribeProgram: %v", err)
	}

	req := <-requests
	if req.Method != "programSubscribe" {
		t.Errorf("expected programSubscribe, got %s", req.Method)
	}
	if len(req.Params) != 2 || req.Params[0] != "prog" {
		t.Fatalf("unexpected params: %v", req.Params)
	}
	cfg := req.Params[1].(map[string]interface{})
	filters, _ := cfg["filters"].([]interface{})
	if len(filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(filters))
	}
	if cfg["commitment"] != CommitmentConfirmed {
		t.Errorf("expected confirmed commitment, got %v", cfg["commitment"])
	}

	select {
	case notif := <-ch:
		if notif.Pubkey != "pool1" {
			t.Errorf("expected pool1, got %s", notif.Pubkey)
		}
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
		if notif.Account.Lamports != 42 || notif.Account.Data != "AAEC" {
			t.Errorf("unexpected account: %+v", notif.Account)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_Close(t *testing.T) {
	client, err := NewWSClient(context.Background(), idleWSServer(t), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	ctx := context.Background()
	client, err := NewWSClient(ctx, idleWSServer(t), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	_, err = client.SubscribeProgram(ctx, ProgramFilter{ProgramID: "prog"})
	if err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	config := &WSClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: 1 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	client, err := NewWSClient(context.Background(), idleWSServer(t), config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
	if client.config.Commitment != CommitmentConfirmed {
		t.Errorf("expected default commitment, got %s", client.config.Commitment)
	}
	if client.config.Logger == nil {
		t.Error("expected nop logger")
	}
}

func TestWSClient_ResubscribesAfterReconnect(t *testing.T) {
	var conns atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		n := conns.Add(1)

		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		// The server hands out a new subscription ID per connection.
		subID := int64(100 + n)
		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}); err != nil {
			return
		}

		if n == 1 {
			time.Sleep(20 * time.Millisecond)
			return // drop the first connection
		}

		time.Sleep(100 * time.Millisecond)
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "programNotification",
			"params": map[string]interface{}{
				"subscription": subID,
				"result": map[string]interface{}{
					"value": map[string]interface{}{
						"pubkey": "after-reconnect",
						"account": map[string]interface{}{
							"owner": "prog",
							"data":  []string{"", "base64"},
						},
					},
				},
			},
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond

	ctx := context.Background()
	client, err := NewWSClient(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	ch, err := client.SubscribeProgram(ctx, ProgramFilter{ProgramID: "prog"})
	if err != nil {
		t.Fatalf("SubscribeProgram: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Pubkey != "after-reconnect" {
			t.Errorf("expected after-reconnect, got %s", notif.Pubkey)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification after reconnect")
	}

	client.subsMu.RLock()
	_, rekeyed := client.subs[102]
	client.subsMu.RUnlock()
	if !rekeyed {
		t.Error("subscription should be keyed by the new server ID")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscription channel should be closed after Close")
	}
}
