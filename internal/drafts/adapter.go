// Package drafts persists canvas documents as one JSON file per problem in
// a named Drive folder.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/leetdraw/leetdraw/internal/auth"
	"github.com/leetdraw/leetdraw/internal/document"
	"github.com/leetdraw/leetdraw/internal/drive"
	"github.com/leetdraw/leetdraw/internal/problem"
)

// DefaultFolderName is the Drive folder holding every draft.
const DefaultFolderName = "LeetCode Drafts"

// ErrNoDocument means no draft exists for the problem yet.
var ErrNoDocument = errors.New("no saved drawing")

// Step names a stage of a save or load.
type Step string

const (
	StepAuthenticate Step = "authenticate"
	StepEncode       Step = "encode document"
	StepFolder       Step = "resolve folder"
	StepFile         Step = "resolve file"
	StepCreate       Step = "create file"
	StepUpdate       Step = "update file"
	StepDownload     Step = "download file"
	StepDecode       Step = "decode document"
)

// StepError reports which stage of an operation failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TokenProvider hands out Drive credentials.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	RequestInteractiveAuth(ctx context.Context) (*oauth2.Token, error)
}

// SaveResult describes where a draft was written.
type SaveResult struct {
	FileID  string `json:"fileId"`
	Created bool   `json:"created"`
}

// Adapter saves and loads drafts.
type Adapter struct {
	tokens      TokenProvider
	baseClient  *http.Client
	folderName  string
	driveOpts   []drive.Option
	authRetries int
	logger      *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the client underneath the OAuth transport.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.baseClient = c }
}

func WithFolderName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.folderName = name
		}
	}
}

func WithDriveOptions(opts ...drive.Option) Option {
	return func(a *Adapter) { a.driveOpts = append(a.driveOpts, opts...) }
}

// WithAuthRetries sets how many times a 401 triggers re-authentication.
func WithAuthRetries(n int) Option {
	return func(a *Adapter) {
		if n >= 0 {
			a.authRetries = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

func New(tokens TokenProvider, opts ...Option) *Adapter {
	a := &Adapter{
		tokens:      tokens,
		folderName:  DefaultFolderName,
		authRetries: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save writes doc as the draft for problemID, creating the folder and file
// as needed and updating the existing file otherwise.
func (a *Adapter) Save(ctx context.Context, problemID string, doc *document.CanvasDocument) (*SaveResult, error) {
	data, err := document.Encode(doc)
	if err != nil {
		return nil, &StepError{Step: StepEncode, Err: err}
	}

	var result *SaveResult
	err = a.withClient(ctx, func(c *drive.Client) error {
		r, err := a.save(ctx, c, problemID, data)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("draft saved", "problem", problemID, "file", result.FileID, "created", result.Created)
	return result, nil
}

func (a *Adapter) save(ctx context.Context, c *drive.Client, problemID string, data []byte) (*SaveResult, error) {
	folder, err := c.FindFolder(ctx, a.folderName)
	if err != nil {
		return nil, &StepError{Step: StepFolder, Err: err}
	}
	if folder == nil {
		folder, err = c.CreateFolder(ctx, a.folderName)
		if err != nil {
			return nil, &StepError{Step: StepFolder, Err: err}
		}
		a.logger.Info("created drafts folder", "folder", folder.ID)
	}

	name := problem.FileName(problemID)
	existing, err := c.FindFile(ctx, name, folder.ID)
	if err != nil {
		return nil, &StepError{Step: StepFile, Err: err}
	}

	if existing != nil {
		f, err := c.UpdateFile(ctx, existing.ID, data)
		if err != nil {
			return nil, &StepError{Step: StepUpdate, Err: err}
		}
		return &SaveResult{FileID: f.ID}, nil
	}

	f, err := c.CreateFile(ctx, name, folder.ID, data)
	if err != nil {
		return nil, &StepError{Step: StepCreate, Err: err}
	}
	return &SaveResult{FileID: f.ID, Created: true}, nil
}

// Load reads the draft for problemID. It returns ErrNoDocument when the
// folder or the file does not exist; the folder is never created here.
func (a *Adapter) Load(ctx context.Context, problemID string) (*document.CanvasDocument, error) {
	var doc *document.CanvasDocument
	err := a.withClient(ctx, func(c *drive.Client) error {
		d, err := a.load(ctx, c, problemID)
		doc = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (a *Adapter) load(ctx context.Context, c *drive.Client, problemID string) (*document.CanvasDocument, error) {
	folder, err := c.FindFolder(ctx, a.folderName)
	if err != nil {
		return nil, &StepError{Step: StepFolder, Err: err}
	}
	if folder == nil {
		return nil, ErrNoDocument
	}

	f, err := c.FindFile(ctx, problem.FileName(problemID), folder.ID)
	if err != nil {
		return nil, &StepError{Step: StepFile, Err: err}
	}
	if f == nil {
		return nil, ErrNoDocument
	}

	data, err := c.Download(ctx, f.ID)
	if err != nil {
		return nil, &StepError{Step: StepDownload, Err: err}
	}

	doc, err := document.Decode(data)
	if err != nil {
		return nil, &StepError{Step: StepDecode, Err: err}
	}
	return doc, nil
}

// withClient runs fn with an authenticated Drive client. A 401 from Drive
// triggers interactive sign-in and a rerun of fn, up to authRetries times.
func (a *Adapter) withClient(ctx context.Context, fn func(*drive.Client) error) error {
	tok, err := a.token(ctx)
	if err != nil {
		return &StepError{Step: StepAuthenticate, Err: err}
	}

	for attempt := 0; ; attempt++ {
		err = fn(a.client(ctx, tok))
		if err == nil || !errors.Is(err, drive.ErrUnauthorized) || attempt >= a.authRetries {
			return err
		}

		a.logger.Info("drive rejected credentials, signing in again", "attempt", attempt+1)
		tok, err = a.tokens.RequestInteractiveAuth(ctx)
		if err != nil {
			return &StepError{Step: StepAuthenticate, Err: err}
		}
	}
}

func (a *Adapter) token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.tokens.Token(ctx)
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return a.tokens.RequestInteractiveAuth(ctx)
	}
	return tok, err
}

func (a *Adapter) client(ctx context.Context, tok *oauth2.Token) *drive.Client {
	if a.baseClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.baseClient)
	}
	return drive.New(oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)), a.driveOpts...)
}
