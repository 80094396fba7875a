package drawing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/leetdraw/leetdraw/internal/auth"
	"github.com/leetdraw/leetdraw/internal/document"
	"github.com/leetdraw/leetdraw/internal/drafts"
	"github.com/leetdraw/leetdraw/internal/problem"
)

const maxDocumentSize = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type problemResponse struct {
	ProblemID string `json:"problemId"`
	Found     bool   `json:"found"`
}

// Problem handles GET /api/problem?url=.
func (h *Handler) Problem(w http.ResponseWriter, r *http.Request) {
	id, ok := problem.FromURL(r.URL.Query().Get("url"))
	writeJSON(w, http.StatusOK, problemResponse{ProblemID: id, Found: ok})
}

func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	problemID := mux.Vars(r)["problemId"]

	doc, err := h.service.Load(r.Context(), problemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	data, err := document.Encode(doc)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	problemID := mux.Vars(r)["problemId"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	doc, err := document.Decode(body)
	if err != nil {
		if errors.Is(err, document.ErrInvalidShapeKind) {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document"})
		return
	}

	res, err := h.service.Save(r.Context(), problemID, doc)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// Preview handles GET /api/problems/{problemId}/preview.png?width=&height=.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	problemID := mux.Vars(r)["problemId"]

	width, err := intParam(r, "width", DefaultPreviewWidth)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid width"})
		return
	}
	height, err := intParam(r, "height", DefaultPreviewHeight)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid height"})
		return
	}

	pw := &pngWriter{w: w}
	if err := h.service.Preview(r.Context(), pw, problemID, width, height); err != nil {
		if pw.started {
			slog.Error("write preview", "error", err, "problem", problemID, "session", auth.SessionIDFromContext(r.Context()))
			return
		}
		handleServiceError(w, r, err)
	}
}

type engineConfigResponse struct {
	BoundsPadding float64 `json:"boundsPadding"`
}

// EngineConfig handles GET /api/engine. The extension passes the result
// to the wasm engine before the first drawer opens.
func (h *Handler) EngineConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engineConfigResponse{BoundsPadding: h.service.Padding()})
}

// Busy handles GET /api/busy.
func (h *Handler) Busy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Busy())
}

// pngWriter sets PNG headers on first write.
type pngWriter struct {
	w       http.ResponseWriter
	started bool
}

func (p *pngWriter) Write(b []byte) (int, error) {
	if !p.started {
		p.started = true
		p.w.Header().Set("Content-Type", "image/png")
		p.w.Header().Set("Cache-Control", "no-store")
		p.w.WriteHeader(http.StatusOK)
	}
	return p.w.Write(b)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := ErrorCode(err)
	logger := slog.With("session", auth.SessionIDFromContext(r.Context()))
	body := map[string]string{"error": code}

	var stepErr *drafts.StepError
	if errors.As(err, &stepErr) {
		body["step"] = string(stepErr.Step)
	}

	switch code {
	case "no_problem", "bad_request", "invalid_document":
		writeJSON(w, http.StatusBadRequest, body)
	case "no_document":
		writeJSON(w, http.StatusNotFound, body)
	case "in_flight":
		writeJSON(w, http.StatusConflict, body)
	case "invalid_shape_kind":
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case "not_authenticated", "invalid_token":
		writeJSON(w, http.StatusUnauthorized, body)
	case "timeout":
		writeJSON(w, http.StatusGatewayTimeout, body)
	case "network":
		logger.Warn("drive request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, body)
	default:
		logger.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
