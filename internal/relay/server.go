package relay

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"tankarena/internal/protocol"
)

const (
	inviteSize = 256
	statsDays  = 7
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TokenRequest is the body of POST /api/token
type TokenRequest struct {
	Nickname string `json:"nick"`
}

// TokenResponse is returned by POST /api/token
type TokenResponse struct {
	Token    string `json:"token"`
	Nickname string `json:"nick"`
}

// StatsResponse is returned by GET /api/stats
type StatsResponse struct {
	Rooms   int            `json:"rooms"`
	Clients int            `json:"clients"`
	Events  map[string]int `json:"events"`
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *way.Router {
	router := way.NewRouter()
	router.HandleFunc("POST", "/api/token", hub.handleToken)
	router.HandleFunc("GET", "/api/rooms", hub.handleRooms)
	router.HandleFunc("GET", "/api/rooms/:name/invite.png", hub.handleInvite)
	router.HandleFunc("GET", "/join/:name", hub.handleJoinLink)
	router.HandleFunc("GET", "/api/stats", hub.handleStats)
	router.HandleFunc("GET", "/ws", hub.handleWS)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("write response")
	}
}

func (h *Hub) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := h.auth.IssueToken(req.Nickname, extractIP(r))
	switch {
	case errors.Is(err, ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	case errors.Is(err, ErrInvalidNickname):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.WithError(err).Error("issue token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	nick, _ := CleanNickname(req.Nickname)
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, Nickname: nick})
}

func (h *Hub) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rooms.List())
}

// InviteURL is the link a room invite encodes. It resolves to the room's
// details; peers join with the name it carries.
func (h *Hub) InviteURL(r *http.Request, room string) string {
	base := h.opts.PublicURL
	if base == "" {
		base = "http://" + r.Host
	}
	return strings.TrimRight(base, "/") + "/join/" + url.PathEscape(room)
}

func (h *Hub) handleJoinLink(w http.ResponseWriter, r *http.Request) {
	info, ok := h.rooms.Info(way.Param(r.Context(), "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Hub) handleInvite(w http.ResponseWriter, r *http.Request) {
	name := way.Param(r.Context(), "name")
	if !h.rooms.Exists(name) {
		http.NotFound(w, r)
		return
	}
	png, err := qrcode.Encode(h.InviteURL(r, name), qrcode.Medium, inviteSize)
	if err != nil {
		log.WithError(err).Error("encode invite")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.analytics.EventCounts(statsDays)
	if err != nil {
		log.WithError(err).Warn("event counts")
	}
	if counts == nil {
		counts = map[string]int{}
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Rooms:   h.rooms.Count(),
		Clients: h.ClientCount(),
		Events:  counts,
	})
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	nick, err := h.auth.ValidateToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ip := extractIP(r)
	if !h.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade error")
		return
	}

	h.TrackConnect(ip)

	client := NewClient(h, conn, ip, nick)
	select {
	case h.register <- client:
	case <-h.done:
		h.TrackDisconnect(ip)
		conn.Close()
		return
	}
	client.SendJSON(protocol.Envelope{T: protocol.MsgHello, Data: protocol.HelloMsg{Nickname: nick}})

	go client.WritePump()
	go client.ReadPump()
}
