package bridge

import (
	"encoding/json"
	"fmt"
)

// Message is one frame on the bridge. Every request is answered by exactly
// one response carrying the same ID.
type Message struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is the failure half of a response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "bridge: " + e.Code
	}
	return fmt.Sprintf("bridge: %s: %s", e.Code, e.Message)
}

const (
	TypeRequest  = "request"
	TypeResponse = "response"
)

// Extension → service
const (
	MethodAuthGetToken   = "auth.getToken"
	MethodAuthInitiate   = "auth.initiate"
	MethodAuthSignOut    = "auth.signOut"
	MethodProblemFromURL = "problem.fromURL"
	MethodDrawingSave    = "drawing.save"
	MethodDrawingLoad    = "drawing.load"
)

// Service → extension
const (
	MethodAuthInteractive = "auth.interactive"
)

const (
	CodeUnknownMethod = "unknown_method"
	CodeBadRequest    = "bad_request"
	CodeInternal      = "internal"
)

// --- Payloads ---

type TokenPayload struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

type AuthStatusPayload struct {
	Authenticated bool `json:"authenticated"`
}

type ProblemURLPayload struct {
	URL string `json:"url"`
}

type ProblemPayload struct {
	ProblemID string `json:"problemId"`
	Found     bool   `json:"found"`
}

type DrawingSavePayload struct {
	ProblemID string          `json:"problemId"`
	Document  json.RawMessage `json:"document"`
}

type DrawingLoadPayload struct {
	ProblemID string `json:"problemId"`
}
