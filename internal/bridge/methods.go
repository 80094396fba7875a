package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/leetdraw/leetdraw/internal/auth"
	"github.com/leetdraw/leetdraw/internal/document"
	"github.com/leetdraw/leetdraw/internal/drawing"
	"github.com/leetdraw/leetdraw/internal/problem"
)

type tokenResult struct {
	AccessToken string    `json:"accessToken"`
	Expiry      time.Time `json:"expiry"`
}

// RegisterMethods adds the extension-facing methods to m. Create m with
// NewMux(drawing.ErrorCode) so service errors keep their codes.
func RegisterMethods(m *Mux, authSvc *auth.Service, drawings *drawing.Service) {
	m.Handle(MethodAuthGetToken, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		tok, err := authSvc.Token(ctx)
		if err != nil {
			return nil, err
		}
		return tokenResult{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
	})

	// With a token in params the extension has already signed in; without
	// one the service asks the most recent extension to do so.
	m.Handle(MethodAuthInitiate, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p TokenPayload
		if len(params) > 0 {
			if err := decodeParams(params, &p); err != nil {
				return nil, err
			}
		}

		if p.AccessToken != "" {
			if err := authSvc.CheckToken(ctx, p.AccessToken); err != nil {
				return nil, err
			}
			if _, err := authSvc.StoreToken(ctx, p.AccessToken, p.ExpiresIn); err != nil {
				return nil, err
			}
		} else if _, err := authSvc.RequestInteractiveAuth(ctx); err != nil {
			return nil, err
		}
		return AuthStatusPayload{Authenticated: authSvc.Authenticated(ctx)}, nil
	})

	m.Handle(MethodAuthSignOut, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		if err := authSvc.SignOut(ctx); err != nil {
			return nil, err
		}
		slog.Info("signed out over bridge", "session", auth.SessionIDFromContext(ctx))
		return AuthStatusPayload{Authenticated: false}, nil
	})

	m.Handle(MethodProblemFromURL, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p ProblemURLPayload
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		id, ok := problem.FromURL(p.URL)
		return ProblemPayload{ProblemID: id, Found: ok}, nil
	})

	m.Handle(MethodDrawingSave, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p DrawingSavePayload
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		doc, err := document.Decode(p.Document)
		if err != nil {
			if errors.Is(err, document.ErrInvalidShapeKind) {
				return nil, err
			}
			return nil, &Error{Code: CodeBadRequest, Message: err.Error()}
		}

		res, err := drawings.Save(ctx, p.ProblemID, doc)
		if err != nil {
			return nil, err
		}
		return res, nil
	})

	m.Handle(MethodDrawingLoad, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p DrawingLoadPayload
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		doc, err := drawings.Load(ctx, p.ProblemID)
		if err != nil {
			return nil, err
		}
		data, err := document.Encode(doc)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	})
}
