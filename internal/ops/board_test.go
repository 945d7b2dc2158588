package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/riverbend-health/hospital-ops-platform/internal/allocation"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

type fakeBoardConn struct {
	mu        sync.Mutex
	frames    [][]byte
	failWrite bool
	closed    bool
}

func (c *fakeBoardConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrite {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeBoardConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeBoardConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeBoardConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestBoardState_ServesLatestReport(t *testing.T) {
	state := NewBoardState()

	report, err := state.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RiskLevel != allocation.RiskLow {
		t.Fatalf("expected initial Low report, got %s", report.RiskLevel)
	}

	state.PublishReport(allocation.BottleneckReport{RiskLevel: allocation.RiskHigh})
	report, _ = state.Snapshot(context.Background())
	if report.RiskLevel != allocation.RiskHigh {
		t.Fatalf("expected High after publish, got %s", report.RiskLevel)
	}
}

func TestBoardHub_PushFansOutAndPrunesDeadClients(t *testing.T) {
	state := NewBoardState()
	state.PublishReport(allocation.BottleneckReport{
		StageCounts: map[string]int{"radiology": 9},
		RiskLevel:   allocation.RiskHigh,
	})
	hub := NewBoardHub(state, logging.Default())

	healthy := &fakeBoardConn{}
	dead := &fakeBoardConn{failWrite: true}
	hub.register(healthy)
	hub.register(dead)

	hub.Push(context.Background())

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected dead client pruned, ClientCount = %d", got)
	}
	if !dead.closed {
		t.Fatal("expected dead client connection closed")
	}
	if healthy.frameCount() != 1 {
		t.Fatalf("expected 1 frame, got %d", healthy.frameCount())
	}

	var frame BoardFrame
	if err := json.Unmarshal(healthy.frames[0], &frame); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if frame.Board.RiskLevel != allocation.RiskHigh {
		t.Fatalf("frame risk = %s, want High", frame.Board.RiskLevel)
	}
	if frame.PushedAt.IsZero() {
		t.Fatal("expected pushed_at to be set")
	}

	// A second push only reaches the surviving client.
	hub.Push(context.Background())
	if healthy.frameCount() != 2 {
		t.Fatalf("expected 2 frames, got %d", healthy.frameCount())
	}
}

func TestBoardHub_SnapshotErrorSkipsPush(t *testing.T) {
	source := SnapshotFunc(func(context.Context) (allocation.BottleneckReport, error) {
		return allocation.BottleneckReport{}, errors.New("feed down")
	})
	hub := NewBoardHub(source, logging.Default())

	conn := &fakeBoardConn{}
	hub.register(conn)

	hub.Push(context.Background())

	if conn.frameCount() != 0 {
		t.Fatalf("expected no frames on snapshot failure, got %d", conn.frameCount())
	}
	if hub.ClientCount() != 1 {
		t.Fatal("expected client to stay registered on snapshot failure")
	}
}

func TestBoardHub_ImmediateSnapshotOnConnect(t *testing.T) {
	state := NewBoardState()
	state.PublishReport(allocation.BottleneckReport{
		StageCounts: map[string]int{"lab": 4},
		RiskLevel:   allocation.RiskMedium,
	})
	hub := NewBoardHub(state, logging.Default())

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleBoard))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected immediate snapshot, read failed: %v", err)
	}

	var frame BoardFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if frame.Board.RiskLevel != allocation.RiskMedium {
		t.Fatalf("frame risk = %s, want Medium", frame.Board.RiskLevel)
	}
}

func TestBoardHub_StartPushesOnInterval(t *testing.T) {
	state := NewBoardState()
	hub := NewBoardHub(state, logging.Default()).WithInterval(20 * time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleBoard))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// First frame arrives on connect, the second from the ticker.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 2; i++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read %d failed: %v", i+1, err)
		}
	}
}
