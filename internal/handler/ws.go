package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkordes/trip-planner/backend/internal/watch"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 4096
)

// Snapshot is pushed to a subscriber on connect and after every change to its
// path. Either Data or Error is set.
type Snapshot struct {
	Path  string       `json:"path"`
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// Subscribe handles GET /ws?path=... and upgrades to a WebSocket. The client
// receives the current value of path immediately and again after each change.
// Messages sent by the client are ignored.
func (s *Server) Subscribe(w http.ResponseWriter, r *http.Request) {
	var path string
	if !bindQuery(w, r, "path", true, &path) {
		return
	}
	if !s.watchable(path) {
		requestError(w, "path must be one of trip, trip/days, trip/budget, checklist")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.log.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	// Subscribe before the first snapshot so no change slips in between.
	sub := s.hub.Subscribe(path)
	go s.writePump(r.Context(), conn, sub)
	s.readPump(conn)
	sub.Unsubscribe()
}

func (s *Server) watchable(path string) bool {
	switch path {
	case watch.PathTrip, watch.PathDays:
		return s.trips != nil
	case watch.PathBudget:
		return s.budget != nil
	case watch.PathChecklist:
		return s.checklist != nil
	}
	return false
}

// snapshot reads the current value published under path.
func (s *Server) snapshot(ctx context.Context, path string) (any, error) {
	switch path {
	case watch.PathTrip:
		return s.trips.Load(ctx)
	case watch.PathDays:
		t, err := s.trips.Load(ctx)
		return t.Days, err
	case watch.PathBudget:
		return s.budget.Overview(ctx)
	default:
		return s.checklist.Load(ctx)
	}
}

// writePump owns every write on conn. It exits when the subscription is
// closed or a write fails.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, sub *watch.Subscription) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if !s.push(ctx, conn, sub.Path()) {
		return
	}
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !s.push(ctx, conn, sub.Path()) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) push(ctx context.Context, conn *websocket.Conn, path string) bool {
	msg := Snapshot{Path: path}
	data, err := s.snapshot(ctx, path)
	if err != nil {
		s.log.ErrorContext(ctx, "subscription snapshot failed", "path", path, "error", err)
		msg.Error = &ErrorDetail{Code: "internal_error", Message: "snapshot unavailable"}
	} else {
		msg.Data = data
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg) == nil
}

// readPump drains the connection until it closes, keeping the read deadline
// alive on pongs.
func (s *Server) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}
