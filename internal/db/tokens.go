package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/leetdraw/leetdraw/internal/auth"
)

const defaultTokenKey = "default"

// TokenStore keeps the Drive credential in Postgres so it survives
// restarts.
type TokenStore struct {
	pool *pgxpool.Pool
	key  string
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool, key: defaultTokenKey}
}

func (s *TokenStore) Get(ctx context.Context) (*oauth2.Token, error) {
	var (
		tok    oauth2.Token
		expiry *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT access_token, token_type, expiry FROM oauth_tokens WHERE id = $1`, s.key,
	).Scan(&tok.AccessToken, &tok.TokenType, &expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNoToken
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	if expiry != nil {
		tok.Expiry = *expiry
	}
	return &tok, nil
}

func (s *TokenStore) Put(ctx context.Context, tok *oauth2.Token) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO oauth_tokens (id, access_token, token_type, expiry, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    token_type   = EXCLUDED.token_type,
		    expiry       = EXCLUDED.expiry,
		    updated_at   = now()`,
		s.key, tok.AccessToken, tokenType, expiry)
	if err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

func (s *TokenStore) Delete(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM oauth_tokens WHERE id = $1`, s.key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
