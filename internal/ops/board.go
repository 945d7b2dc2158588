package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/riverbend-health/hospital-ops-platform/internal/allocation"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// defaultPushInterval spaces live board refreshes.
const defaultPushInterval = 5 * time.Second

// boardWriteTimeout bounds one push to one client.
const boardWriteTimeout = 5 * time.Second

// SnapshotSource produces the current congestion picture for the live board.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (allocation.BottleneckReport, error)
}

// SnapshotFunc adapts a function to SnapshotSource.
type SnapshotFunc func(ctx context.Context) (allocation.BottleneckReport, error)

func (f SnapshotFunc) Snapshot(ctx context.Context) (allocation.BottleneckReport, error) {
	return f(ctx)
}

// BoardState remembers the newest bottleneck report and serves it as the
// live board snapshot. It satisfies both the allocation report sink and the
// hub's SnapshotSource.
type BoardState struct {
	mu     sync.RWMutex
	report allocation.BottleneckReport
}

func NewBoardState() *BoardState {
	return &BoardState{
		report: allocation.BottleneckReport{RiskLevel: allocation.RiskLow},
	}
}

// PublishReport stores the latest report.
func (s *BoardState) PublishReport(report allocation.BottleneckReport) {
	s.mu.Lock()
	s.report = report
	s.mu.Unlock()
}

// Snapshot returns the latest stored report.
func (s *BoardState) Snapshot(_ context.Context) (allocation.BottleneckReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, nil
}

var _ allocation.ReportSink = (*BoardState)(nil)
var _ SnapshotSource = (*BoardState)(nil)

// boardConn is the slice of *websocket.Conn the hub uses. Tests register fakes.
type boardConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// BoardFrame is one push to the live board.
type BoardFrame struct {
	PushedAt time.Time                   `json:"pushed_at"`
	Board    allocation.BottleneckReport `json:"board"`
}

// BoardHub pushes bottleneck snapshots to connected websocket clients on an
// interval. Every client gets an immediate snapshot on connect; clients whose
// writes fail are dropped.
type BoardHub struct {
	source   SnapshotSource
	interval time.Duration
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[boardConn]struct{}
}

func NewBoardHub(source SnapshotSource, logger *logging.Logger) *BoardHub {
	if source == nil {
		panic("ops: snapshot source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BoardHub{
		source:   source,
		interval: defaultPushInterval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS middleware owns origin policy.
			},
		},
		clients: make(map[boardConn]struct{}),
	}
}

// WithInterval overrides the push interval.
func (h *BoardHub) WithInterval(d time.Duration) *BoardHub {
	if d > 0 {
		h.interval = d
	}
	return h
}

// HandleBoard upgrades GET /live/board and registers the client.
func (h *BoardHub) HandleBoard(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("board upgrade failed", "error", err)
		return
	}

	h.register(conn)
	h.logger.Info("board client connected", "remote", conn.RemoteAddr().String())

	if frame, ok := h.frame(r.Context()); ok {
		if err := h.send(conn, frame); err != nil {
			h.drop(conn)
			return
		}
	}

	go h.readUntilClose(conn)
}

// readUntilClose discards inbound frames; the board is one-directional. A
// read error means the peer went away.
func (h *BoardHub) readUntilClose(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Start pushes frames until the context ends. Run it in its own goroutine.
func (h *BoardHub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Push(ctx)
		}
	}
}

// Push snapshots once and fans the frame out to every client. Exported so
// tests and operators can force a refresh.
func (h *BoardHub) Push(ctx context.Context) {
	frame, ok := h.frame(ctx)
	if !ok {
		return
	}

	h.mu.Lock()
	conns := make([]boardConn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := h.send(conn, frame); err != nil {
			h.logger.Debug("board client dropped", "error", err)
			h.drop(conn)
		}
	}
}

// ClientCount reports connected clients.
func (h *BoardHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *BoardHub) register(conn boardConn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *BoardHub) drop(conn boardConn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *BoardHub) frame(ctx context.Context) ([]byte, bool) {
	report, err := h.source.Snapshot(ctx)
	if err != nil {
		h.logger.Error("board snapshot failed", "error", err)
		return nil, false
	}
	data, err := json.Marshal(BoardFrame{PushedAt: time.Now().UTC(), Board: report})
	if err != nil {
		h.logger.Error("board frame marshal failed", "error", err)
		return nil, false
	}
	return data, true
}

func (h *BoardHub) send(conn boardConn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(boardWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (h *BoardHub) closeAll() {
	h.mu.Lock()
	conns := make([]boardConn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[boardConn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
