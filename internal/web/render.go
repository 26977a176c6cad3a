package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/user"
)

// View is the value every page template is executed with.
type View struct {
	Success  []string
	Error    []string
	CurrUser *user.User
	Data     any
}

type errorPage struct {
	Message string
}

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page under views/ together with the layouts and
// partials. Pages are addressed by path without extension, e.g.
// "listings/show".
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	shared := []string{"views/layouts/*.html", "views/partials/*.html"}

	pages := make(map[string]*template.Template)
	err := fs.WalkDir(fsys, "views", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		if strings.HasPrefix(p, "views/layouts/") || strings.HasPrefix(p, "views/partials/") {
			return nil
		}

		patterns := append(append([]string{}, shared...), p)
		tmpl, err := template.New(path.Base(p)).Funcs(funcs).ParseFS(fsys, patterns...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}

		name := strings.TrimSuffix(strings.TrimPrefix(p, "views/"), ".html")
		pages[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Renderer{pages: pages}, nil
}

// Render writes page with status. Pending flashes are consumed here.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	logger := logging.GetLoggerFromContext(r.Context())

	tmpl, ok := rd.pages[page]
	if !ok {
		logger.Error("unknown template", "page", page)
		http.Error(w, defaultErrorMessage, http.StatusInternalServerError)
		return
	}

	sess := session.FromContext(r.Context())
	view := View{
		Success:  sess.PopFlashes(session.FlashSuccess),
		Error:    sess.PopFlashes(session.FlashError),
		CurrUser: session.CurrentUser(r.Context()),
		Data:     data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		logger.Error("failed to render template", "page", page, "error", err)
		http.Error(w, defaultErrorMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error renders the error page. A *StatusError anywhere in the chain sets
// the status and message; anything else is a 500.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, defaultErrorMessage

	var se *StatusError
	if errors.As(err, &se) {
		status = se.Status
		if se.Message != "" {
			message = se.Message
		}
	}

	logger := logging.GetLoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "status", status, "error", err)
	}

	rd.Render(w, r, status, "listings/error", errorPage{Message: message})
}

// NotFound is the router fallback for unmatched paths.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Error(w, r, NotFound("Page not found!"))
}

// Redirect sends a 302 to url.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusFound)
}

// Flash queues a message on the request session.
func Flash(r *http.Request, kind, message string) {
	session.FromContext(r.Context()).Flash(kind, message)
}
