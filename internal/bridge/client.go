package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/leetdraw/leetdraw/internal/typeid"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 8 << 20
	sendBuffer = 64
)

// ErrClosed is returned by Call once the connection is gone.
var ErrClosed = errors.New("bridge connection closed")

// Peer is one end of a bridge connection. Both ends can issue requests.
type Peer struct {
	ID string
	// SessionID is set on the accepting side.
	SessionID string

	conn   *websocket.Conn
	mux    *Mux
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]chan *Message
}

func NewPeer(conn *websocket.Conn, id string, mux *Mux, logger *slog.Logger) *Peer {
	if mux == nil {
		mux = NewMux(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Peer{
		ID:      id,
		conn:    conn,
		mux:     mux,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		logger:  logger.With("peer", id),
		pending: make(map[string]chan *Message),
	}
}

// Start runs both pumps in the background.
func (p *Peer) Start(ctx context.Context) {
	go p.WritePump(ctx)
	go p.ReadPump(ctx)
}

// Done is closed when the connection ends.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) ReadPump(ctx context.Context) {
	defer p.Close()

	p.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			p.logger.Debug("read error", "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			p.logger.Warn("invalid message", "error", err)
			continue
		}

		switch msg.Type {
		case TypeRequest:
			go p.dispatch(ctx, &msg)
		case TypeResponse:
			p.deliver(&msg)
		default:
			p.logger.Warn("unknown message type", "type", msg.Type)
		}
	}
}

func (p *Peer) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.Close()
	}()

	for {
		select {
		case message := <-p.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := p.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				p.logger.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := p.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-p.done:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Close ends the connection and fails every pending call.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close(websocket.StatusNormalClosure, "")
	})
}

// Call sends a request and waits for its response. A response error is
// returned as *Error. result may be nil.
func (p *Peer) Call(ctx context.Context, method string, params, result interface{}) error {
	msg := &Message{Type: TypeRequest, ID: typeid.NewRequestID(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		msg.Params = raw
	}

	ch := make(chan *Message, 1)
	p.mu.Lock()
	p.pending[msg.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, msg.ID)
		p.mu.Unlock()
	}()

	if err := p.enqueue(ctx, msg); err != nil {
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Peer) enqueue(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	select {
	case p.send <- data:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Peer) deliver(msg *Message) {
	p.mu.Lock()
	ch, ok := p.pending[msg.ID]
	p.mu.Unlock()

	if !ok {
		p.logger.Warn("response for unknown request", "id", msg.ID)
		return
	}

	select {
	case ch <- msg:
	default:
		p.logger.Warn("duplicate response", "id", msg.ID)
	}
}

func (p *Peer) dispatch(ctx context.Context, req *Message) {
	resp := &Message{Type: TypeResponse, ID: req.ID}

	result, err := p.mux.serve(ctx, req.Method, req.Params)
	if err != nil {
		resp.Error = p.mux.toError(err)
		p.logger.Debug("request failed", "method", req.Method, "code", resp.Error.Code, "error", err)
	} else if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			resp.Error = &Error{Code: CodeInternal, Message: "marshal result"}
		} else {
			resp.Result = raw
		}
	}

	if err := p.enqueue(ctx, resp); err != nil {
		p.logger.Debug("drop response", "method", req.Method, "error", err)
	}
}
