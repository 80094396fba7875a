package auth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a TokenStore that holds no credential.
var ErrNoToken = errors.New("no stored token")

// TokenStore keeps the single Drive credential of this installation.
type TokenStore interface {
	Get(ctx context.Context) (*oauth2.Token, error)
	Put(ctx context.Context, tok *oauth2.Token) error
	Delete(ctx context.Context) error
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tok == nil {
		return nil, ErrNoToken
	}
	tok := *m.tok
	return &tok, nil
}

func (m *MemoryStore) Put(ctx context.Context, tok *oauth2.Token) error {
	cp := *tok
	m.mu.Lock()
	m.tok = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.tok = nil
	m.mu.Unlock()
	return nil
}
