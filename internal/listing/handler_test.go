package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/user"
	"github.com/nomadnest/nomadnest/internal/web"
	"github.com/nomadnest/nomadnest/templates"
)

func newTestRouter(t *testing.T, f *fixture, current *user.User) http.Handler {
	t.Helper()

	views, err := web.NewRenderer(templates.ViewsFS)
	require.NoError(t, err)
	sessions, err := session.NewManager(session.NewMemoryStore(), "test-secret", time.Hour, false, logging.NewLogger(false))
	require.NoError(t, err)

	h := NewHandler(f.service, NewSearchEngine(f.store), views, "")

	r := chi.NewRouter()
	r.Use(sessions.Middleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if current != nil {
				r = r.WithContext(session.WithUser(r.Context(), current))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/", h.Home)
	r.Get("/listings", h.Index)
	r.Post("/listings", h.Create)
	r.Get("/listings/{id}", h.Show)
	r.Delete("/listings/{id}", h.Delete)
	r.Get("/search", h.Search)
	r.Get("/search/suggestions", h.Suggestions)
	return r
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	return rec, doc
}

func TestHomeHoldsBackLastSlide(t *testing.T) {
	_, doc := serve(t, newTestRouter(t, newFixture(), nil), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, len(landingImages)-1, doc.Find(".carousel-item").Length())
	assert.Equal(t, 1, doc.Find(".carousel-item.active").Length())
}

func TestIndexRendersCards(t *testing.T) {
	f := newFixture()
	f.store.total = 2
	f.store.page = []*Listing{
		{ID: uuid.New(), Title: "Beach hut", Location: "Goa", Country: "India", Price: 1500},
		{ID: uuid.New(), Title: "Alpine cabin", Location: "Zermatt", Country: "Switzerland", Price: 12000},
	}

	rec, doc := serve(t, newTestRouter(t, f, nil), httptest.NewRequest(http.MethodGet, "/listings?category=mountains", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, doc.Find(".listing-card").Length())
	assert.Equal(t, 12, doc.Find(".categories .category").Length())
	assert.Equal(t, "mountains", doc.Find(".categories .category.active").AttrOr("data-category", ""))
	assert.Contains(t, doc.Find(".listing-card").Last().Text(), "12,000")
}

func TestShowUnknownListingRedirects(t *testing.T) {
	h := newTestRouter(t, newFixture(), nil)

	for _, path := range []string{"/listings/" + uuid.NewString(), "/listings/not-a-uuid"} {
		rec, _ := serve(t, h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/listings", rec.Header().Get("Location"), path)
	}
}

func TestShowRendersDetail(t *testing.T) {
	owner := &user.User{ID: uuid.New(), Username: "host"}
	l := &Listing{
		ID:       uuid.New(),
		Title:    "Lakeside villa with pool",
		Location: "Udaipur",
		Country:  "India",
		Price:    2000,
		OwnerID:  owner.ID,
		Owner:    owner,
		Reviews:  []*Review{{ID: uuid.New(), Rating: 4, Comment: "Lovely", Author: &user.User{Username: "guest"}}},
	}
	f := newFixture(l)

	rec, doc := serve(t, newTestRouter(t, f, nil), httptest.NewRequest(http.MethodGet, "/listings/"+l.ID.String()+"?checkIn=2025-03-01&checkOut=2025-03-04", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Lakeside villa with pool", doc.Find(".listing-title").Text())
	assert.Contains(t, doc.Find(".category-badge").Text(), "Pools")
	assert.Contains(t, doc.Find(".owner").Text(), "host")
	assert.Equal(t, 10, doc.Find(".amenities li").Length())
	assert.Equal(t, 1, doc.Find(".review").Length())
	assert.Contains(t, doc.Find(".average-rating").Text(), "4.0")
	assert.Contains(t, doc.Find(".quote-total").Text(), "6,000")
	assert.NotEmpty(t, doc.Find(".plus-code code").Text())

	// anonymous visitors get no owner controls and no review form
	assert.Zero(t, doc.Find(".owner-actions").Length())
	assert.Zero(t, doc.Find(".review-form").Length())
}

func TestShowOwnerControls(t *testing.T) {
	owner := &user.User{ID: uuid.New(), Username: "host"}
	l := &Listing{ID: uuid.New(), Title: "Cabin", OwnerID: owner.ID, Owner: owner}
	f := newFixture(l)

	_, doc := serve(t, newTestRouter(t, f, owner), httptest.NewRequest(http.MethodGet, "/listings/"+l.ID.String(), nil))

	assert.Equal(t, 1, doc.Find(".owner-actions").Length())
	assert.Equal(t, 1, doc.Find(".review-form").Length())
}

func TestShowBadStayMessage(t *testing.T) {
	l := &Listing{ID: uuid.New(), Title: "Cabin", Price: 100}
	f := newFixture(l)

	_, doc := serve(t, newTestRouter(t, f, nil), httptest.NewRequest(http.MethodGet, "/listings/"+l.ID.String()+"?checkIn=2025-03-04&checkOut=2025-03-01", nil))
	assert.Equal(t, "check-out must be after check-in", doc.Find(".quote-error").Text())
}

func multipartListing(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("listing[image]", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestCreateListing(t *testing.T) {
	f := newFixture()
	owner := &user.User{ID: uuid.New(), Username: "host"}

	body, contentType := multipartListing(t, map[string]string{
		"listing[title]":       "Beach hut",
		"listing[description]": "Steps from the sea",
		"listing[location]":    "Goa",
		"listing[country]":     "India",
		"listing[price]":       "1500",
	}, "hut.jpg")
	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)

	rec, _ := serve(t, newTestRouter(t, f, owner), req)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/listings", rec.Header().Get("Location"))

	require.Len(t, f.store.byID, 1)
	for _, l := range f.store.byID {
		assert.Equal(t, "Beach hut", l.Title)
		assert.Equal(t, owner.ID, l.OwnerID)
		assert.Equal(t, "nomadnest/hut.jpg", l.Image.Filename)
	}
}

func TestCreateListingValidationError(t *testing.T) {
	f := newFixture()

	body, contentType := multipartListing(t, map[string]string{
		"listing[description]": "Steps from the sea",
		"listing[location]":    "Goa",
		"listing[country]":     "India",
		"listing[price]":       "1500",
	}, "hut.jpg")
	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)

	rec, doc := serve(t, newTestRouter(t, f, &user.User{ID: uuid.New()}), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, doc.Find(".error-message").Text(), `"title" is required`)
	assert.Empty(t, f.store.byID)
}

func TestCreateListingRejectsNonFinitePrice(t *testing.T) {
	for _, raw := range []string{"Inf", "-Infinity", "NaN", "1e999"} {
		t.Run(raw, func(t *testing.T) {
			f := newFixture()

			body, contentType := multipartListing(t, map[string]string{
				"listing[title]":       "Beach hut",
				"listing[description]": "Steps from the sea",
				"listing[location]":    "Goa",
				"listing[country]":     "India",
				"listing[price]":       raw,
			}, "hut.jpg")
			req := httptest.NewRequest(http.MethodPost, "/listings", body)
			req.Header.Set("Content-Type", contentType)

			rec, doc := serve(t, newTestRouter(t, f, &user.User{ID: uuid.New()}), req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, doc.Find(".error-message").Text(), `"price" must be a number`)
			assert.Empty(t, f.store.byID)
		})
	}
}

func TestCreateListingWithoutImage(t *testing.T) {
	f := newFixture()

	body, contentType := multipartListing(t, map[string]string{
		"listing[title]":       "Beach hut",
		"listing[description]": "Steps from the sea",
		"listing[location]":    "Goa",
		"listing[country]":     "India",
		"listing[price]":       "1500",
	}, "")
	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)

	rec, doc := serve(t, newTestRouter(t, f, &user.User{ID: uuid.New()}), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, doc.Find(".error-message").Text(), "An image is required")
}

func TestDeleteByNonOwnerRedirectsToListing(t *testing.T) {
	l := &Listing{ID: uuid.New(), OwnerID: uuid.New()}
	f := newFixture(l)

	rec, _ := serve(t, newTestRouter(t, f, &user.User{ID: uuid.New()}), httptest.NewRequest(http.MethodDelete, "/listings/"+l.ID.String(), nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/listings/"+l.ID.String(), rec.Header().Get("Location"))
	assert.Empty(t, f.store.deleted)
}

func TestSearchPage(t *testing.T) {
	f := newFixture(&Listing{ID: uuid.New(), Title: "Beach hut", Location: "Goa", Country: "India"})
	h := newTestRouter(t, f, nil)

	_, doc := serve(t, h, httptest.NewRequest(http.MethodGet, "/search?q=+", nil))
	assert.Equal(t, "Please enter a search term", doc.Find(".search-message").Text())

	_, doc = serve(t, h, httptest.NewRequest(http.MethodGet, "/search?q=goa", nil))
	assert.Equal(t, 1, doc.Find(".listing-card").Length())
	assert.Contains(t, doc.Find(".result-count").Text(), "1 listing found")

	_, doc = serve(t, h, httptest.NewRequest(http.MethodGet, "/search?q=paris", nil))
	assert.Equal(t, `No listings found for "paris"`, doc.Find(".search-message").Text())
}

func TestSearchFailureRedirects(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("db down")

	rec, _ := serve(t, newTestRouter(t, f, nil), httptest.NewRequest(http.MethodGet, "/search?q=goa", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/listings", rec.Header().Get("Location"))
}

func TestSuggestionsEndpoint(t *testing.T) {
	f := newFixture(&Listing{Title: "Parallel Lives Resort", Location: "Goa", Country: "India"})
	h := newTestRouter(t, f, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/suggestions?q=par", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Parallel Lives Resort"}, got)

	f.store.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/suggestions?q=par", nil).WithContext(context.Background()))
	assert.JSONEq(t, `[]`, rec.Body.String())
}
