package spectate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/netpac/internal/metrics"
)

func startHub(t *testing.T, status StatusFunc) (*Hub, *metrics.Metrics, *httptest.Server) {
	t.Helper()
	m := metrics.New()
	hub := NewHub(log.New(io.Discard))
	hub.SetMetrics(m)

	srv := httptest.NewServer(NewMux(hub, m, status))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, m, srv
}

func dialSpectator(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if ev := readEvent(t, conn); ev.Type != EventHello {
		t.Fatalf("First event = %q, expected %q", ev.Type, EventHello)
	}
	return conn
}

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev rawEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() failed: %v", err)
	}
	return ev
}

func TestNotifyReachesSpectators(t *testing.T) {
	hub, _, srv := startHub(t, nil)
	a := dialSpectator(t, srv)
	b := dialSpectator(t, srv)

	hub.Notify("round_started", map[string]any{"map": "classic.map", "players": 2})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		if ev.Type != "round_started" {
			t.Errorf("Type = %q, expected round_started", ev.Type)
		}
		var data struct {
			Map     string `json:"map"`
			Players int    `json:"players"`
		}
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			t.Fatalf("Unmarshal data: %v", err)
		}
		if data.Map != "classic.map" || data.Players != 2 {
			t.Errorf("Data = %+v", data)
		}
		if ev.Time.IsZero() {
			t.Error("Event time should be set")
		}
	}
}

func TestNotifyWithoutSpectatorsDoesNotBlock(t *testing.T) {
	hub := NewHub(log.New(io.Discard))

	done := make(chan struct{})
	go func() {
		// Far more than the queue holds, with nobody running the hub.
		for i := 0; i < 1000; i++ {
			hub.Notify("scores", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify() blocked")
	}
}

func TestSpectatorGauge(t *testing.T) {
	_, m, srv := startHub(t, nil)
	conn := dialSpectator(t, srv)

	if got := m.Spectators.Load(); got != 1 {
		t.Errorf("Spectators = %d, expected 1", got)
	}

	conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for m.Spectators.Load() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Spectator gauge not decremented after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	_, m, srv := startHub(t, func() any {
		return map[string]any{"started": true, "map": "classic.map"}
	})
	m.IncAccepted()

	tests := []struct {
		path        string
		contentType string
		check       func(t *testing.T, body []byte)
	}{
		{
			path:        "/healthz",
			contentType: "text/plain",
			check: func(t *testing.T, body []byte) {
				if string(body) != "ok" {
					t.Errorf("Body = %q, expected ok", body)
				}
			},
		},
		{
			path:        "/metrics",
			contentType: "application/json",
			check: func(t *testing.T, body []byte) {
				var snap map[string]any
				if err := json.Unmarshal(body, &snap); err != nil {
					t.Fatalf("Unmarshal: %v", err)
				}
				if snap["connections_accepted"] != 1.0 {
					t.Errorf("connections_accepted = %v, expected 1", snap["connections_accepted"])
				}
			},
		},
		{
			path:        "/status",
			contentType: "application/json",
			check: func(t *testing.T, body []byte) {
				var st map[string]any
				if err := json.Unmarshal(body, &st); err != nil {
					t.Fatalf("Unmarshal: %v", err)
				}
				if st["started"] != true || st["map"] != "classic.map" {
					t.Errorf("Status = %v", st)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tc.contentType) {
				t.Errorf("Content-Type = %q, expected %q", ct, tc.contentType)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			tc.check(t, body)
		})
	}
}

func TestStatusWithoutFunc(t *testing.T) {
	_, _, srv := startHub(t, nil)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, expected 404", resp.StatusCode)
	}
}
