package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// HandlerFunc serves one bridge method. The returned value is marshalled as
// the response result.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Mux routes incoming requests by method name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	code     func(error) string
}

// NewMux returns an empty Mux. code maps handler errors to response codes;
// nil reports every error as "internal".
func NewMux(code func(error) string) *Mux {
	return &Mux{handlers: make(map[string]HandlerFunc), code: code}
}

func (m *Mux) Handle(method string, h HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = h
}

func (m *Mux) serve(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	m.mu.RLock()
	h, ok := m.handlers[method]
	m.mu.RUnlock()

	if !ok {
		return nil, &Error{Code: CodeUnknownMethod, Message: method}
	}
	return h(ctx, params)
}

// toError prefers a classified code over a wrapped *Error so that a failed
// callback into another peer does not leak that peer's code.
func (m *Mux) toError(err error) *Error {
	code := CodeInternal
	if m.code != nil {
		code = m.code(err)
	}
	if code != CodeInternal {
		return &Error{Code: code, Message: err.Error()}
	}

	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return &Error{Code: code, Message: err.Error()}
}

// decodeParams unmarshals params into v, reporting bad_request on failure.
func decodeParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return &Error{Code: CodeBadRequest, Message: "missing params"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &Error{Code: CodeBadRequest, Message: err.Error()}
	}
	return nil
}
