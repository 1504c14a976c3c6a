package handlers

import (
	"net/http"

	"nhooyr.io/websocket"

	"github.com/rudchat/backend/internal/logging"
	"github.com/rudchat/backend/internal/realtime"
)

// RealtimeHandler upgrades /ws requests and hands the connection to a
// session. Authentication happens in-channel via the auth frame rather
// than at upgrade time, since browser websockets cannot set an
// Authorization header.
type RealtimeHandler struct {
	Registry *realtime.Registry
	Router   *realtime.Router
	Verifier realtime.TokenVerifier

	// AllowedOrigins restricts cross-origin upgrades. Empty means
	// same-origin only, the websocket library default.
	AllowedOrigins []string
}

// Handle implements GET /ws.
func (h RealtimeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Registry == nil || h.Router == nil || h.Verifier == nil {
		logger.Error("realtime dependencies unavailable",
			"hasRegistry", h.Registry != nil, "hasRouter", h.Router != nil, "hasVerifier", h.Verifier != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "realtime services unavailable"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.AllowedOrigins,
	})
	if err != nil {
		// Accept already wrote the error response.
		logger.Warn("websocket accept failed", "error", err)
		return
	}

	session := realtime.NewSession(realtime.NewConn(conn), h.Registry, h.Router, h.Verifier, logger)
	session.Run(ctx)
}
