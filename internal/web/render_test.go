package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"views/layouts/base.html": {Data: []byte(`{{define "layout"}}<title>{{block "title" .}}default{{end}}</title>` +
			`{{range .Error}}<p class="flash-error">{{.}}</p>{{end}}<main>{{template "content" .}}</main>{{end}}`)},
		"views/partials/greeting.html": {Data: []byte(`{{define "greeting"}}hello {{.}}{{end}}`)},
		"views/home.html":              {Data: []byte(`{{define "title"}}Home{{end}}{{define "content"}}<p class="msg">{{template "greeting" .Data}}</p>{{end}}`)},
		"views/listings/error.html":    {Data: []byte(`{{define "content"}}<h4 class="error-message">{{.Data.Message}}</h4>{{end}}`)},
		"views/listings/price.html":    {Data: []byte(`{{define "content"}}<span class="price">{{price .Data}}</span>{{end}}`)},
	}
}

func render(t *testing.T, fn func(w http.ResponseWriter, r *http.Request)) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return rec, doc
}

func TestRenderUsesLayoutAndPartials(t *testing.T) {
	rd, err := NewRenderer(testFS())
	require.NoError(t, err)

	rec, doc := render(t, func(w http.ResponseWriter, r *http.Request) {
		rd.Render(w, r, http.StatusOK, "home", "nomad")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Home", doc.Find("title").Text())
	assert.Equal(t, "hello nomad", doc.Find(".msg").Text())
}

func TestRenderUnknownPage(t *testing.T) {
	rd, err := NewRenderer(testFS())
	require.NoError(t, err)

	rec, _ := render(t, func(w http.ResponseWriter, r *http.Request) {
		rd.Render(w, r, http.StatusOK, "missing", nil)
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorPage(t *testing.T) {
	rd, err := NewRenderer(testFS())
	require.NoError(t, err)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Something went wrong!"},
		{"status error", BadRequest(`"title" is required`), http.StatusBadRequest, `"title" is required`},
		{"wrapped", fmt.Errorf("loading: %w", NotFound("Page not found!")), http.StatusNotFound, "Page not found!"},
		{"status without message", &StatusError{Status: http.StatusInternalServerError, Err: errors.New("db")}, http.StatusInternalServerError, "Something went wrong!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, doc := render(t, func(w http.ResponseWriter, r *http.Request) {
				rd.Error(w, r, tt.err)
			})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, doc.Find(".error-message").Text())
		})
	}
}

func TestNotFoundHandler(t *testing.T) {
	rd, err := NewRenderer(testFS())
	require.NoError(t, err)

	rec, doc := render(t, rd.NotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Page not found!", doc.Find(".error-message").Text())
}

func TestNewRendererReportsParseErrors(t *testing.T) {
	fsys := testFS()
	fsys["views/broken.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{.Data`)}

	_, err := NewRenderer(fsys)
	assert.ErrorContains(t, err, "views/broken.html")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,200", FormatPrice(1200))
	assert.Equal(t, "99.50", FormatPrice(99.5))
	assert.Equal(t, "0", FormatPrice(0))
}

func TestStatusErrorUnwraps(t *testing.T) {
	cause := errors.New("cause")
	err := &StatusError{Status: http.StatusBadGateway, Message: "Upstream failed", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "502 Upstream failed: cause", err.Error())
}
