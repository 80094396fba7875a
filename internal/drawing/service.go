package drawing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leetdraw/leetdraw/internal/auth"
	"github.com/leetdraw/leetdraw/internal/document"
	"github.com/leetdraw/leetdraw/internal/drafts"
	"github.com/leetdraw/leetdraw/internal/drive"
	"github.com/leetdraw/leetdraw/internal/engine"
)

const (
	DefaultTimeout = 30 * time.Second

	DefaultPreviewWidth  = 500
	DefaultPreviewHeight = 400
	maxPreviewSize       = 4096
)

var (
	ErrNoProblem   = errors.New("no active problem")
	ErrInFlight    = errors.New("operation already in progress for this problem")
	ErrPreviewSize = errors.New("invalid preview size")
	ErrInvalidDoc  = errors.New("invalid document")
)

// Store persists documents per problem.
type Store interface {
	Save(ctx context.Context, problemID string, doc *document.CanvasDocument) (*drafts.SaveResult, error)
	Load(ctx context.Context, problemID string) (*document.CanvasDocument, error)
}

type Service struct {
	store    Store
	inflight *InFlight
	timeout  time.Duration
	padding  float64
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPadding sets the bounds margin used when rendering previews.
func WithPadding(p float64) Option {
	return func(s *Service) { s.padding = p }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		inflight: NewInFlight(),
		timeout:  DefaultTimeout,
		padding:  engine.PercentPadding,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists doc for problemID. A second call for the same problem while
// one is running fails with ErrInFlight.
func (s *Service) Save(ctx context.Context, problemID string, doc *document.CanvasDocument) (*drafts.SaveResult, error) {
	if problemID == "" {
		return nil, ErrNoProblem
	}
	if doc == nil {
		doc = document.NewEmptyDocument()
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDoc, err)
	}

	release, ok := s.inflight.Acquire(problemID, "save")
	if !ok {
		return nil, ErrInFlight
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.store.Save(ctx, problemID, doc)
	if err != nil {
		return nil, fmt.Errorf("save drawing: %w", err)
	}
	return res, nil
}

// Load returns the stored document for problemID. A missing draft comes
// back as drafts.ErrNoDocument.
func (s *Service) Load(ctx context.Context, problemID string) (*document.CanvasDocument, error) {
	if problemID == "" {
		return nil, ErrNoProblem
	}

	release, ok := s.inflight.Acquire(problemID, "load")
	if !ok {
		return nil, ErrInFlight
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.store.Load(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("load drawing: %w", err)
	}
	return doc, nil
}

// Preview renders the stored document for problemID as PNG.
func (s *Service) Preview(ctx context.Context, w io.Writer, problemID string, width, height int) error {
	if width <= 0 || height <= 0 || width > maxPreviewSize || height > maxPreviewSize {
		return fmt.Errorf("%w: %dx%d", ErrPreviewSize, width, height)
	}

	doc, err := s.Load(ctx, problemID)
	if err != nil {
		return err
	}

	model := engine.NewModel(engine.WithPadding(s.padding))
	if err := model.LoadDocument(doc); err != nil {
		return fmt.Errorf("adopt document: %w", err)
	}

	var buf bytes.Buffer
	if err := engine.RenderPNG(&buf, model.Shapes(), width, height); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Padding returns the bounds margin, in percentage space, that engines
// talking to this server should use.
func (s *Service) Padding() float64 {
	return s.padding
}

// Busy lists problems with an operation running.
func (s *Service) Busy() map[string]Activity {
	return s.inflight.GetAll()
}

// ErrorCode maps an error to the short code used on the bridge and in
// HTTP error bodies.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoProblem):
		return "no_problem"
	case errors.Is(err, ErrInFlight):
		return "in_flight"
	case errors.Is(err, ErrPreviewSize):
		return "bad_request"
	case errors.Is(err, drafts.ErrNoDocument):
		return "no_document"
	case errors.Is(err, document.ErrInvalidShapeKind):
		return "invalid_shape_kind"
	case errors.Is(err, ErrInvalidDoc):
		return "invalid_document"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, drive.ErrUnauthorized):
		return "not_authenticated"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, drive.ErrNetwork):
		return "network"
	default:
		slog.Debug("unclassified error", "error", err)
		return "internal"
	}
}
