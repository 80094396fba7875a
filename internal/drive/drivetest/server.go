// Package drivetest provides an in-memory Drive v3 server for tests.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/leetdraw/leetdraw/internal/drive"
)

// Op names a Drive call for failure injection and counting.
type Op string

const (
	OpList         Op = "list"
	OpCreateFolder Op = "createFolder"
	OpCreate       Op = "create"
	OpUpdate       Op = "update"
	OpDownload     Op = "download"
)

// Entry is a stored file or folder.
type Entry struct {
	drive.File
	Content []byte
	Trashed bool
}

// Server is a fake Drive backed by a map.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	entries  map[string]*Entry
	order    []string
	nextID   int
	token    string
	failures map[Op][]int
	calls    map[Op]int
}

// NewServer starts a fake Drive. Close it when done.
func NewServer() *Server {
	s := &Server{
		entries:  make(map[string]*Entry),
		failures: make(map[Op][]int),
		calls:    make(map[Op]int),
	}

	r := mux.NewRouter()
	r.Use(s.authorize)
	r.HandleFunc("/drive/v3/files", s.list).Methods("GET")
	r.HandleFunc("/drive/v3/files", s.createFolder).Methods("POST")
	r.HandleFunc("/drive/v3/files/{fileId}", s.download).Methods("GET").Queries("alt", "media")
	r.HandleFunc("/upload/drive/v3/files", s.create).Methods("POST").Queries("uploadType", "multipart")
	r.HandleFunc("/upload/drive/v3/files/{fileId}", s.update).Methods("PATCH").Queries("uploadType", "media")

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the metadata endpoint root to pass to drive.WithBaseURL.
func (s *Server) BaseURL() string { return s.URL + "/drive/v3" }

// UploadURL is the upload endpoint root to pass to drive.WithUploadURL.
func (s *Server) UploadURL() string { return s.URL + "/upload/drive/v3" }

// Options returns the client options pointing at this server.
func (s *Server) Options() []drive.Option {
	return []drive.Option{drive.WithBaseURL(s.BaseURL()), drive.WithUploadURL(s.UploadURL())}
}

// RequireToken makes every request without "Bearer tok" fail with 401.
func (s *Server) RequireToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
}

// FailNext makes the next call of op answer with status instead.
// Repeated calls queue further failures.
func (s *Server) FailNext(op Op, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], status)
}

// Calls returns how many times op was served (failed calls included).
func (s *Server) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddFolder seeds a folder and returns its id.
func (s *Server) AddFolder(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(drive.File{Name: name, MimeType: drive.FolderMimeType}, nil)
}

// AddFile seeds a file and returns its id.
func (s *Server) AddFile(name, parentID string, content []byte, trashed bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addLocked(drive.File{Name: name, MimeType: drive.JSONMimeType, Parents: []string{parentID}}, content)
	s.entries[id].Trashed = trashed
	return id
}

// Files returns every non-folder entry in creation order.
func (s *Server) Files() []Entry {
	return s.filter(func(e *Entry) bool { return e.MimeType != drive.FolderMimeType })
}

// Folders returns every folder entry in creation order.
func (s *Server) Folders() []Entry {
	return s.filter(func(e *Entry) bool { return e.MimeType == drive.FolderMimeType })
}

// Content returns the stored content of a file.
func (s *Server) Content(id string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return append([]byte(nil), e.Content...)
	}
	return nil
}

func (s *Server) filter(keep func(*Entry) bool) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, id := range s.order {
		if e := s.entries[id]; keep(e) {
			out = append(out, *e)
		}
	}
	return out
}

func (s *Server) addLocked(f drive.File, content []byte) string {
	s.nextID++
	f.ID = fmt.Sprintf("file-%d", s.nextID)
	s.entries[f.ID] = &Entry{File: f, Content: append([]byte(nil), content...)}
	s.order = append(s.order, f.ID)
	return f.ID
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		tok := s.token
		s.mu.Unlock()

		if tok != "" && r.Header.Get("Authorization") != "Bearer "+tok {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// begin counts the call and reports whether an injected failure was served.
func (s *Server) begin(w http.ResponseWriter, op Op) bool {
	s.mu.Lock()
	s.calls[op]++
	var status int
	if q := s.failures[op]; len(q) > 0 {
		status, s.failures[op] = q[0], q[1:]
	}
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "injected failure")
		return true
	}
	return false
}

var (
	nameClause   = regexp.MustCompile(`name='((?:\\.|[^'\\])*)'`)
	mimeClause   = regexp.MustCompile(`mimeType='((?:\\.|[^'\\])*)'`)
	parentClause = regexp.MustCompile(`'((?:\\.|[^'\\])*)' in parents`)
	unescape     = strings.NewReplacer(`\'`, `'`, `\\`, `\`)
)

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, OpList) {
		return
	}

	q := r.URL.Query().Get("q")
	name := clause(nameClause, q)
	mimeType := clause(mimeClause, q)
	parent := clause(parentClause, q)
	excludeTrashed := strings.Contains(q, "trashed=false")

	s.mu.Lock()
	files := []drive.File{}
	for _, id := range s.order {
		e := s.entries[id]
		if name != "" && e.Name != name {
			continue
		}
		if mimeType != "" && e.MimeType != mimeType {
			continue
		}
		if parent != "" && !contains(e.Parents, parent) {
			continue
		}
		if excludeTrashed && e.Trashed {
			continue
		}
		files = append(files, e.File)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, OpCreateFolder) {
		return
	}

	var f drive.File
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil || f.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid metadata")
		return
	}

	s.mu.Lock()
	id := s.addLocked(f, nil)
	created := s.entries[id].File
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, created)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, OpCreate) {
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/related" {
		writeError(w, http.StatusBadRequest, "expected multipart/related")
		return
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	var parts [][]byte
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		data, err := io.ReadAll(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		parts = append(parts, data)
	}
	if len(parts) != 2 {
		writeError(w, http.StatusBadRequest, "expected metadata and media parts")
		return
	}

	var f drive.File
	if err := json.Unmarshal(parts[0], &f); err != nil || f.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid metadata")
		return
	}

	s.mu.Lock()
	id := s.addLocked(f, parts[1])
	created := s.entries[id].File
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, created)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, OpUpdate) {
		return
	}

	id := mux.Vars(r)["fileId"]
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	var f drive.File
	if ok {
		e.Content = data
		f = e.File
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, OpDownload) {
		return
	}

	id := mux.Vars(r)["fileId"]
	s.mu.Lock()
	e, ok := s.entries[id]
	var data []byte
	if ok {
		data = append([]byte(nil), e.Content...)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", drive.JSONMimeType)
	w.Write(data)
}

func clause(re *regexp.Regexp, q string) string {
	m := re.FindStringSubmatch(q)
	if m == nil {
		return ""
	}
	return unescape.Replace(m[1])
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{"code": status, "message": msg},
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
