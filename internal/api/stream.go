package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamCatchUp   = 50
	streamPing      = 15 * time.Second
	streamWriteWait = 5 * time.Second
)

// handleStream upgrades to a websocket, sends recent events oldest first,
// then forwards every committed event until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := s.streamConns.Add(1); n > maxStreamConns {
		s.streamConns.Add(-1)
		writeError(w, http.StatusServiceUnavailable, "too many stream connections")
		return
	}
	defer s.streamConns.Add(-1)

	// Subscribe before reading the catch-up so nothing falls in between.
	subID, ch := s.Hotel.Subscribe()
	defer s.Hotel.Unsubscribe(subID)

	recent, err := s.Hotel.Events(r.Context(), streamCatchUp)
	if err != nil {
		s.fail(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	slices.Reverse(recent)
	var seen int64
	for _, e := range recent {
		seen = max(seen, e.ID)
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
	slog.Info("stream client connected", "sub_id", subID)

	// The read loop only notices close frames and dead peers.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPing)
	defer ping.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.ID <= seen {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		case <-r.Context().Done():
			return
		}
	}
}
