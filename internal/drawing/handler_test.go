package drawing

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetdraw/leetdraw/internal/document"
	"github.com/leetdraw/leetdraw/internal/drafts"
	"github.com/leetdraw/leetdraw/internal/drive"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func newRouter(s *Service) *mux.Router {
	h := NewHandler(s)
	r := mux.NewRouter()
	r.HandleFunc("/api/problem", h.Problem).Methods("GET")
	r.HandleFunc("/api/problems/{problemId}/drawing", h.Load).Methods("GET")
	r.HandleFunc("/api/problems/{problemId}/drawing", h.Save).Methods("PUT")
	r.HandleFunc("/api/problems/{problemId}/preview.png", h.Preview).Methods("GET")
	r.HandleFunc("/api/engine", h.EngineConfig).Methods("GET")
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProblemHandler(t *testing.T) {
	r := newRouter(NewService(newMemStore()))

	rec := serve(r, "GET", "/api/problem?url=https%3A%2F%2Fleetcode.com%2Fproblems%2Ftwo-sum%2Fdescription%2F", "")
	assert.JSONEq(t, `{"problemId":"two-sum","found":true}`, rec.Body.String())

	rec = serve(r, "GET", "/api/problem?url=https%3A%2F%2Fexample.com", "")
	assert.JSONEq(t, `{"problemId":"","found":false}`, rec.Body.String())
}

func TestDrawingHandlers(t *testing.T) {
	r := newRouter(NewService(newMemStore()))

	rec := serve(r, "GET", "/api/problems/two-sum/drawing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no_document"}`, rec.Body.String())

	data, err := document.Encode(lineDoc())
	require.NoError(t, err)

	rec = serve(r, "PUT", "/api/problems/two-sum/drawing", string(data))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(r, "PUT", "/api/problems/two-sum/drawing", string(data))
	require.Equal(t, http.StatusOK, rec.Code)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, false, res["created"])

	rec = serve(r, "GET", "/api/problems/two-sum/drawing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(data), rec.Body.String())
}

func TestSaveHandlerRejectsBadDocuments(t *testing.T) {
	r := newRouter(NewService(newMemStore()))

	rec := serve(r, "PUT", "/api/problems/two-sum/drawing", `{"shapes":[{"type":"hexagon"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_shape_kind"}`, rec.Body.String())

	rec = serve(r, "PUT", "/api/problems/two-sum/drawing", `{"shapes":[{"type":"free","points":[1]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, "PUT", "/api/problems/two-sum/drawing", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewHandler(t *testing.T) {
	s := NewService(newMemStore())
	r := newRouter(s)

	rec := serve(r, "GET", "/api/problems/two-sum/preview.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := s.Save(t.Context(), "two-sum", lineDoc())
	require.NoError(t, err)

	rec = serve(r, "GET", "/api/problems/two-sum/preview.png?width=120&height=80", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = serve(r, "GET", "/api/problems/two-sum/preview.png?width=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, "GET", "/api/problems/two-sum/preview.png?width=99999", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveHandlerBodyErrors(t *testing.T) {
	r := newRouter(NewService(newMemStore()))

	req := httptest.NewRequest("PUT", "/api/problems/two-sum/drawing", errReader{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"failed to read body"}`, rec.Body.String())

	huge := `{"shapes":[],"pad":"` + strings.Repeat("x", maxDocumentSize) + `"}`
	rec = serve(r, "PUT", "/api/problems/two-sum/drawing", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"document too large"}`, rec.Body.String())
}

func TestHandlerDriveUnauthorized(t *testing.T) {
	apiErr := &drive.APIError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}
	r := newRouter(NewService(failStore{err: &drafts.StepError{Step: drafts.StepFolder, Err: apiErr}}))

	rec := serve(r, "GET", "/api/problems/two-sum/drawing", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"not_authenticated","step":"resolve folder"}`, rec.Body.String())
}

func TestEngineConfigHandler(t *testing.T) {
	rec := serve(newRouter(NewService(newMemStore())), "GET", "/api/engine", "")
	assert.JSONEq(t, `{"boundsPadding":2}`, rec.Body.String())

	rec = serve(newRouter(NewService(newMemStore(), WithPadding(0.5))), "GET", "/api/engine", "")
	assert.JSONEq(t, `{"boundsPadding":0.5}`, rec.Body.String())
}
