package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"retroim/internal/app/im"
	"retroim/internal/pkg/logx"
)

// HandleWebSocket upgrades the request and starts an unauthenticated session.
// Identity is established afterwards by the first authenticate event on the
// socket, not by this handler.
func HandleWebSocket(deps *AppDeps) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			if len(deps.Config.AllowedOrigins) == 0 {
				// no configured origins means development mode
				return true
			}

			for _, allowed := range deps.Config.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr)
			return
		}

		session := im.NewSession(deps.Hub, conn)

		go session.WritePump()
		go session.ReadPump()
	}
}
