// Package ws serves the read-only observer endpoint: a websocket feed
// of planet state reports and admission decisions. The game protocol
// itself never crosses this boundary; explorers and the orchestrator
// talk to the planet over in-process channels.
package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"planetfall.ai/internal/sim/planet"
)

type Server struct {
	planet *planet.Planet
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(p *planet.Planet, logger *log.Logger) *Server {
	return &Server{
		planet: p,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID := uuid.NewString()
		feed := s.planet.ObserverJoin(sessionID)
		defer s.planet.ObserverLeave(sessionID)
		s.log.Printf("observer %s connected from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-feed:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: observers send nothing we act on; reading keeps
		// the connection's control frames flowing and notices closes.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				break
			}
		}
		s.log.Printf("observer %s disconnected", sessionID)
	}
}
