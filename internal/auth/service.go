package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/leetdraw/leetdraw/internal/typeid"
)

const (
	DefaultRevokeURL    = "https://accounts.google.com/o/oauth2/revoke"
	DefaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"

	// ExpiryBuffer treats a token as expired this long before it really is.
	ExpiryBuffer = 5 * time.Minute

	// DefaultExpiresIn applies when the auth flow reports no lifetime.
	DefaultExpiresIn = 3600

	sessionTTL = 24 * time.Hour
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidToken     = errors.New("invalid access token")
	ErrInvalidSession   = errors.New("invalid session")
)

// Authorizer runs an interactive sign-in and returns the new credential.
type Authorizer interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// Service owns the Drive credential lifecycle and the session tokens the
// extension uses to call this service.
type Service struct {
	store        TokenStore
	authorizer   Authorizer
	httpClient   *http.Client
	revokeURL    string
	tokenInfoURL string
	clientID     string
	secret       []byte
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.authorizer = a }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

func WithRevokeURL(u string) Option {
	return func(s *Service) { s.revokeURL = u }
}

func WithTokenInfoURL(u string) Option {
	return func(s *Service) { s.tokenInfoURL = u }
}

// WithClientID makes token checks require the token to be issued to this
// OAuth client.
func WithClientID(id string) Option {
	return func(s *Service) { s.clientID = id }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store TokenStore, sessionSecret string, opts ...Option) *Service {
	s := &Service{
		store:        store,
		httpClient:   http.DefaultClient,
		revokeURL:    DefaultRevokeURL,
		tokenInfoURL: DefaultTokenInfoURL,
		secret:       []byte(sessionSecret),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the stored credential when it is present and outside the
// expiry buffer. Otherwise it returns ErrNotAuthenticated.
func (s *Service) Token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !s.fresh(tok) {
		return nil, ErrNotAuthenticated
	}
	return tok, nil
}

// RequestInteractiveAuth asks the authorizer for a new credential and
// stores it.
func (s *Service) RequestInteractiveAuth(ctx context.Context) (*oauth2.Token, error) {
	if s.authorizer == nil {
		return nil, fmt.Errorf("%w: no interactive authorizer", ErrNotAuthenticated)
	}

	tok, err := s.authorizer.Authorize(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: authorizer returned no token", ErrNotAuthenticated)
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = s.now().Add(DefaultExpiresIn * time.Second)
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}

	if err := s.store.Put(ctx, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	slog.Info("interactive sign-in completed", "expiry", tok.Expiry)
	return tok, nil
}

// StoreToken records a credential obtained by the extension. expiresIn is
// in seconds; zero or less means DefaultExpiresIn.
func (s *Service) StoreToken(ctx context.Context, accessToken string, expiresIn int) (*oauth2.Token, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}

	tok := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      s.now().Add(time.Duration(expiresIn) * time.Second),
	}
	if err := s.store.Put(ctx, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return tok, nil
}

// Authenticated reports whether a usable credential is stored.
func (s *Service) Authenticated(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}

// SignOut revokes the stored credential and forgets it. A failed revoke is
// logged; the credential is dropped regardless.
func (s *Service) SignOut(ctx context.Context) error {
	tok, err := s.store.Get(ctx)
	if err != nil && !errors.Is(err, ErrNoToken) {
		return fmt.Errorf("load token: %w", err)
	}

	if tok != nil && tok.AccessToken != "" {
		if err := s.revoke(ctx, tok.AccessToken); err != nil {
			slog.Warn("revoke token failed", "error", err)
		}
	}

	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// SignIn checks a credential obtained by the extension, stores it and
// issues a session token. A credential the token info endpoint rejects is
// ErrInvalidToken.
func (s *Service) SignIn(ctx context.Context, accessToken string, expiresIn int) (string, time.Time, error) {
	if err := s.CheckToken(ctx, accessToken); err != nil {
		return "", time.Time{}, err
	}
	if _, err := s.StoreToken(ctx, accessToken, expiresIn); err != nil {
		return "", time.Time{}, err
	}
	return s.IssueSession()
}

// CheckToken asks the token info endpoint whether accessToken is live and,
// when a client id is configured, issued to that client.
func (s *Service) CheckToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrInvalidToken
	}
	ok, err := s.tokenInfo(ctx, accessToken)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	return nil
}

// Verify asks the token info endpoint whether the stored credential is
// still valid.
func (s *Service) Verify(ctx context.Context) (bool, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return false, nil
		}
		return false, err
	}
	return s.tokenInfo(ctx, tok.AccessToken)
}

func (s *Service) tokenInfo(ctx context.Context, accessToken string) (bool, error) {
	u := s.tokenInfoURL + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("token info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var info struct {
		Exp string `json:"exp"`
		Aud string `json:"aud"`
		Azp string `json:"azp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("decode token info: %w", err)
	}
	if s.clientID != "" && info.Aud != s.clientID && info.Azp != s.clientID {
		return false, nil
	}
	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return false, nil
	}
	return exp > s.now().Unix(), nil
}

func (s *Service) revoke(ctx context.Context, accessToken string) error {
	u := s.revokeURL + "?token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke: %s", resp.Status)
	}
	return nil
}

func (s *Service) fresh(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return s.now().Add(ExpiryBuffer).Before(tok.Expiry)
}

// IssueSession signs a session token for the extension.
func (s *Service) IssueSession() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(sessionTTL)
	claims := jwt.MapClaims{
		"sub": typeid.NewSessionID(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateSession checks a session token and returns its session id.
func (s *Service) ValidateSession(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidSession
	}

	sessionID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}
	if err := typeid.Validate(sessionID, typeid.PrefixSession); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	return sessionID, nil
}
