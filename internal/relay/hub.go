package relay

import (
	"sync"

	"tankarena/internal/store"
)

const defaultMaxTotalConns = 1000

// Options tunes a Hub
type Options struct {
	MaxConnsPerIP int
	MaxTotalConns int
	// PublicURL is the base encoded into room invite codes
	PublicURL string
}

// Hub tracks connected clients and owns the room registry
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	rooms      *RoomManager
	auth       *Auth
	analytics  *store.Analytics
	opts       Options

	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a Hub. db and analytics may be nil.
func NewHub(db *store.DB, analytics *store.Analytics, opts Options) *Hub {
	if opts.MaxConnsPerIP <= 0 {
		opts.MaxConnsPerIP = 5
	}
	if opts.MaxTotalConns <= 0 {
		opts.MaxTotalConns = defaultMaxTotalConns
	}
	if analytics == nil {
		analytics = store.NewAnalytics(nil)
	}
	auth := NewAuth(db)
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		rooms:      NewRoomManager(auth, analytics),
		auth:       auth,
		analytics:  analytics,
		opts:       opts,
		ipConns:    make(map[string]int),
	}
}

// Rooms returns the room registry
func (h *Hub) Rooms() *RoomManager { return h.rooms }

// Auth returns the token issuer
func (h *Hub) Auth() *Auth { return h.auth }

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.opts.MaxTotalConns {
		return false
	}
	return h.ipConns[ip] < h.opts.MaxConnsPerIP
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until Stop. Registration is
// unbuffered so a client is always known before its read pump can end.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.rooms.Leave(client, false)

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every client connection and ends Run
func (h *Hub) Stop() {
	close(h.done)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
