package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	statePushInterval = 60 * time.Second
	stateWriteTimeout = 5 * time.Second
)

var stateUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := stateUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStateConnection(conn)
}

func (s *Server) serveStateConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := writeStatePayload(conn, s.statePayload()); err != nil {
		return
	}

	ticker := time.NewTicker(statePushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := writeStatePayload(conn, s.statePayload()); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeStatePayload(conn *websocket.Conn, payload statePayload) error {
	_ = conn.SetWriteDeadline(time.Now().Add(stateWriteTimeout))
	return conn.WriteJSON(payload)
}
