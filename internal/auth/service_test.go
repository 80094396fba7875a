package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeAuthorizer struct {
	tok   *oauth2.Token
	err   error
	calls int
}

func (f *fakeAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	f.calls++
	return f.tok, f.err
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return epoch })}, opts...)
	return NewService(NewMemoryStore(), "test-secret", opts...)
}

// newTokenInfo serves a token info endpoint. "bogus" is rejected, "stale"
// is expired, "other-client" belongs to another client; anything else is
// live for "client".
func newTokenInfo(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("access_token") {
		case "bogus", "":
			w.WriteHeader(http.StatusBadRequest)
		case "stale":
			fmt.Fprintf(w, `{"exp":"%d","aud":"client"}`, epoch.Add(-time.Minute).Unix())
		case "other-client":
			fmt.Fprintf(w, `{"exp":"%d","aud":"someone-else","azp":"someone-else"}`, epoch.Add(time.Hour).Unix())
		default:
			fmt.Fprintf(w, `{"exp":"%d","aud":"client","azp":"client"}`, epoch.Add(time.Hour).Unix())
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestTokenNotAuthenticated(t *testing.T) {
	s := newService(t)
	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.Authenticated(context.Background()))
}

func TestStoreTokenDefaultsExpiry(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	tok, err := s.StoreToken(ctx, "ya29.abc", 0)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Hour), tok.Expiry)
	assert.Equal(t, "Bearer", tok.TokenType)

	got, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.abc", got.AccessToken)
}

func TestStoreTokenRequiresAccessToken(t *testing.T) {
	s := newService(t)
	_, err := s.StoreToken(context.Background(), "", 100)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiryBuffer(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.StoreToken(ctx, "short", 240)
	require.NoError(t, err)
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated, "within five minutes of expiry")

	_, err = s.StoreToken(ctx, "long", 301)
	require.NoError(t, err)
	_, err = s.Token(ctx)
	assert.NoError(t, err)
}

func TestRequestInteractiveAuth(t *testing.T) {
	a := &fakeAuthorizer{tok: &oauth2.Token{AccessToken: "fresh"}}
	s := newService(t, WithAuthorizer(a))
	ctx := context.Background()

	tok, err := s.RequestInteractiveAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, epoch.Add(time.Hour), tok.Expiry)

	got, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
	assert.Equal(t, 1, a.calls)
}

func TestRequestInteractiveAuthFailures(t *testing.T) {
	_, err := newService(t).RequestInteractiveAuth(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	denied := errors.New("user closed the window")
	s := newService(t, WithAuthorizer(&fakeAuthorizer{err: denied}))
	_, err = s.RequestInteractiveAuth(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, err, denied)

	s = newService(t, WithAuthorizer(&fakeAuthorizer{tok: &oauth2.Token{}}))
	_, err = s.RequestInteractiveAuth(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSignOutRevokes(t *testing.T) {
	var revoked atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		revoked.Store(r.URL.Query().Get("token"))
	}))
	defer srv.Close()

	s := newService(t, WithRevokeURL(srv.URL))
	ctx := context.Background()
	_, err := s.StoreToken(ctx, "to-revoke", 3600)
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))
	assert.Equal(t, "to-revoke", revoked.Load())
	assert.False(t, s.Authenticated(ctx))
}

func TestSignOutDropsTokenWhenRevokeFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newService(t, WithRevokeURL(srv.URL))
	ctx := context.Background()
	_, err := s.StoreToken(ctx, "x", 3600)
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))
	assert.False(t, s.Authenticated(ctx))

	// nothing stored: still fine
	require.NoError(t, s.SignOut(ctx))
}

func TestVerify(t *testing.T) {
	exp := epoch.Add(30 * time.Minute).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("access_token") {
		case "good":
			fmt.Fprintf(w, `{"exp":"%d","aud":"client"}`, exp)
		case "stale":
			fmt.Fprintf(w, `{"exp":"%d"}`, epoch.Add(-time.Minute).Unix())
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	s := newService(t, WithTokenInfoURL(srv.URL))
	ctx := context.Background()

	ok, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no token")

	for token, want := range map[string]bool{"good": true, "stale": false, "bogus": false} {
		_, err := s.StoreToken(ctx, token, 3600)
		require.NoError(t, err)
		ok, err := s.Verify(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, ok, token)
	}
}

func TestSignIn(t *testing.T) {
	s := newService(t, WithTokenInfoURL(newTokenInfo(t)))
	ctx := context.Background()

	session, expiresAt, err := s.SignIn(ctx, "ya29.live", 3600)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(24*time.Hour), expiresAt)
	_, err = s.ValidateSession(session)
	require.NoError(t, err)

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.live", tok.AccessToken)
}

func TestSignInRejectsUnknownTokens(t *testing.T) {
	for _, token := range []string{"", "bogus", "stale"} {
		s := newService(t, WithTokenInfoURL(newTokenInfo(t)))
		session, _, err := s.SignIn(context.Background(), token, 3600)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
		assert.Empty(t, session)
		assert.False(t, s.Authenticated(context.Background()), token)
	}
}

func TestSignInChecksClient(t *testing.T) {
	s := newService(t, WithTokenInfoURL(newTokenInfo(t)), WithClientID("client"))
	ctx := context.Background()

	_, _, err := s.SignIn(ctx, "other-client", 3600)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = s.SignIn(ctx, "ya29.live", 3600)
	assert.NoError(t, err)

	// Without a configured client any live token is accepted.
	loose := newService(t, WithTokenInfoURL(newTokenInfo(t)))
	assert.NoError(t, loose.CheckToken(ctx, "other-client"))
}

func TestSignInTokenInfoDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := newService(t, WithTokenInfoURL(url))
	_, _, err := s.SignIn(context.Background(), "ya29.live", 3600)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.False(t, s.Authenticated(context.Background()))
}

func TestSessionRoundTrip(t *testing.T) {
	s := newService(t)
	token, expiresAt, err := s.IssueSession()
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(24*time.Hour), expiresAt)

	id, err := s.ValidateSession(token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "sess_"))
}

func TestSessionRejected(t *testing.T) {
	s := newService(t)
	token, _, err := s.IssueSession()
	require.NoError(t, err)

	other := NewService(NewMemoryStore(), "other-secret", WithClock(func() time.Time { return epoch }))
	_, err = other.ValidateSession(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	later := NewService(NewMemoryStore(), "test-secret", WithClock(func() time.Time { return epoch.Add(48 * time.Hour) }))
	_, err = later.ValidateSession(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = s.ValidateSession("garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}
