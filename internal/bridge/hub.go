package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/leetdraw/leetdraw/internal/auth"
)

// ErrNoPeer means no extension is connected to answer a service request.
var ErrNoPeer = errors.New("no extension connected")

type HubOption func(*Hub)

func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) { h.originPatterns = patterns }
}

func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// Hub accepts extension connections and tracks them in connect order.
type Hub struct {
	mux            *Mux
	originPatterns []string
	logger         *slog.Logger

	mu    sync.RWMutex
	peers []*Peer
}

func NewHub(mux *Mux, opts ...HubOption) *Hub {
	h := &Hub{mux: mux, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and runs the connection until it closes.
// It must sit behind auth.SessionMiddleware; requests without a session
// are refused.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, `{"error":"session required"}`, http.StatusUnauthorized)
		return
	}

	// Server timeouts must not cut long-lived connections.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Error("websocket accept", "error", err)
		return
	}

	peer := NewPeer(conn, uuid.New().String(), h.mux, h.logger.With("session", sessionID))
	peer.SessionID = sessionID
	h.add(peer)
	defer h.remove(peer)

	ctx := r.Context()
	go peer.WritePump(ctx)
	peer.ReadPump(ctx)
}

func (h *Hub) add(p *Peer) {
	h.mu.Lock()
	h.peers = append(h.peers, p)
	n := len(h.peers)
	h.mu.Unlock()

	h.logger.Info("extension connected", "peer", p.ID, "peers", n)
}

func (h *Hub) remove(p *Peer) {
	h.mu.Lock()
	for i, q := range h.peers {
		if q == p {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			break
		}
	}
	n := len(h.peers)
	h.mu.Unlock()

	h.logger.Info("extension disconnected", "peer", p.ID, "peers", n)
}

// Count returns the number of connected peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Latest returns the most recently connected peer, or nil.
func (h *Hub) Latest() *Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.peers) == 0 {
		return nil
	}
	return h.peers[len(h.peers)-1]
}

// Authorize asks the most recent extension to run its interactive sign-in
// flow and returns the token it obtained.
func (h *Hub) Authorize(ctx context.Context) (*oauth2.Token, error) {
	peer := h.Latest()
	if peer == nil {
		return nil, ErrNoPeer
	}

	var res TokenPayload
	if err := peer.Call(ctx, MethodAuthInteractive, nil, &res); err != nil {
		return nil, fmt.Errorf("interactive auth: %w", err)
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("interactive auth: empty access token")
	}

	tok := &oauth2.Token{AccessToken: res.AccessToken, TokenType: "Bearer"}
	if res.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// Dial connects to a bridge endpoint with a session token and starts
// serving requests on it through mux.
func Dial(ctx context.Context, url, sessionToken string, mux *Mux, logger *slog.Logger) (*Peer, error) {
	header := http.Header{}
	if sessionToken != "" {
		header.Set("Authorization", "Bearer "+sessionToken)
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}

	peer := NewPeer(conn, uuid.New().String(), mux, logger)
	peer.Start(context.WithoutCancel(ctx))
	return peer, nil
}
