package listing

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nomadnest/nomadnest/internal/httputil"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/storage"
	"github.com/nomadnest/nomadnest/internal/web"
)

const maxUploadMemory = 10 << 20

const notFoundMessage = "Listing you requested does not exist"

// LandingImage is one slide of the landing page.
type LandingImage struct {
	URL     string
	Caption string
}

var landingImages = []LandingImage{
	{"/static/images/beach.svg", "Let the waves take you where the Wi-Fi can't."},
	{"/static/images/mountains.svg", "Climb mountains, not corporate ladders."},
	{"/static/images/forest.svg", "Where trees speak and cities stay silent."},
	{"/static/images/lake.svg", "Still waters. Stirred souls."},
	{"/static/images/desert.svg", "Whispers of the dunes and wanderers' tales."},
	{"/static/images/snow.svg", "Chill in the air. Fire in the soul."},
	{"/static/images/bridge.svg", "Cross bridges to find yourself."},
	{"/static/images/city.svg", "The city lights hide a thousand untold journeys."},
	{"/static/images/jungle.svg", "In the heart of the jungle, silence speaks loudest."},
	{"/static/images/cabin.svg", "Cabins in the wild know secrets the world forgot."},
	{"/static/images/roadtrip.svg", "Every road trip writes its own poetry."},
}

// LandingImages is the slide set shown on the landing page. The road trip
// slide is held back.
func LandingImages() []LandingImage {
	return append([]LandingImage(nil), landingImages[:len(landingImages)-1]...)
}

// Handler contains HTTP handlers for listings, reviews and search
type Handler struct {
	service  *Service
	search   *SearchEngine
	views    *web.Renderer
	mapToken string
}

func NewHandler(service *Service, search *SearchEngine, views *web.Renderer, mapToken string) *Handler {
	return &Handler{
		service:  service,
		search:   search,
		views:    views,
		mapToken: mapToken,
	}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "home", LandingImages())
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Index(r.Context(), ParseIndexQuery(r.URL.Query()))
	if err != nil {
		h.views.Error(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "listings/index", page)
}

func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "listings/new", nil)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, upload, err := readListingForm(r)
	if err != nil {
		h.views.Error(w, r, err)
		return
	}
	defer closeUpload(upload)

	if _, err := h.service.Create(r.Context(), session.CurrentUser(r.Context()), in, upload); err != nil {
		h.fail(w, r, err)
		return
	}

	web.Flash(r, session.FlashSuccess, "New listing is created!")
	web.Redirect(w, r, "/listings")
}

type showPage struct {
	*Detail
	MapToken string
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	detail, err := h.service.Show(r.Context(), id, strings.TrimSpace(q.Get("checkIn")), strings.TrimSpace(q.Get("checkOut")))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.views.Render(w, r, http.StatusOK, "listings/show", showPage{Detail: detail, MapToken: h.mapToken})
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	l, err := h.service.EditForm(r.Context(), session.CurrentUser(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "listings/edit", l)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	in, upload, err := readListingForm(r)
	if err != nil {
		h.views.Error(w, r, err)
		return
	}
	defer closeUpload(upload)

	if _, err := h.service.Update(r.Context(), session.CurrentUser(r.Context()), id, in, upload); err != nil {
		h.fail(w, r, err)
		return
	}

	web.Flash(r, session.FlashSuccess, "Listing is updated!")
	web.Redirect(w, r, listingPath(id))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), session.CurrentUser(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}

	web.Flash(r, session.FlashSuccess, "Listing is deleted!")
	web.Redirect(w, r, "/listings")
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	rating, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("review[rating]")))
	in := ReviewInput{
		Rating:  rating,
		Comment: strings.TrimSpace(r.PostFormValue("review[comment]")),
	}

	if _, err := h.service.AddReview(r.Context(), id, session.CurrentUser(r.Context()), in); err != nil {
		h.fail(w, r, err)
		return
	}

	web.Flash(r, session.FlashSuccess, "New review created!")
	web.Redirect(w, r, listingPath(id))
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.listingID(w, r)
	if !ok {
		return
	}
	reviewID, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		h.views.Error(w, r, web.NotFound("Review not found"))
		return
	}

	if err := h.service.DeleteReview(r.Context(), session.CurrentUser(r.Context()), id, reviewID); err != nil {
		h.fail(w, r, err)
		return
	}

	web.Flash(r, session.FlashSuccess, "Review deleted!")
	web.Redirect(w, r, listingPath(id))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("search failed", "error", err)
		web.Flash(r, session.FlashError, "Something went wrong during search")
		web.Redirect(w, r, "/listings")
		return
	}
	h.views.Render(w, r, http.StatusOK, "listings/search", result)
}

// Suggestions always answers with a JSON array, empty on any failure.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, r, h.search.Suggestions(r.Context(), r.URL.Query().Get("q")), http.StatusOK)
}

// listingID parses the {id} route param. Malformed ids are treated like
// unknown ones.
func (h *Handler) listingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// fail maps service errors to a flash and redirect or to the error page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		web.Flash(r, session.FlashError, notFoundMessage)
		web.Redirect(w, r, "/listings")
	case errors.Is(err, ErrNotOwner):
		web.Flash(r, session.FlashError, "You are not the owner of this listing")
		web.Redirect(w, r, listingPath(chi.URLParam(r, "id")))
	case errors.Is(err, ErrNotAuthor):
		web.Flash(r, session.FlashError, "You are not the author of this review")
		web.Redirect(w, r, listingPath(chi.URLParam(r, "id")))
	case errors.Is(err, ErrReviewNotFound):
		h.views.Error(w, r, web.NotFound("Review not found"))
	case errors.Is(err, ErrInvalidInput):
		h.views.Error(w, r, &web.StatusError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
	case errors.Is(err, ErrImageRequired):
		h.views.Error(w, r, &web.StatusError{Status: http.StatusBadRequest, Message: "An image is required", Err: err})
	case errors.Is(err, storage.ErrUnsupportedType):
		h.views.Error(w, r, &web.StatusError{Status: http.StatusBadRequest, Message: "Only png, jpg and jpeg images are allowed", Err: err})
	default:
		h.views.Error(w, r, err)
	}
}

func listingPath(id any) string {
	return fmt.Sprintf("/listings/%v", id)
}

// readListingForm reads the listing[...] fields and the optional
// listing[image] file from a multipart or urlencoded body.
func readListingForm(r *http.Request) (ListingInput, *storage.Upload, error) {
	var in ListingInput

	err := r.ParseMultipartForm(maxUploadMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return in, nil, &web.StatusError{Status: http.StatusBadRequest, Message: "Invalid form submission", Err: err}
	}

	in.Title = strings.TrimSpace(r.FormValue("listing[title]"))
	in.Description = strings.TrimSpace(r.FormValue("listing[description]"))
	in.Location = strings.TrimSpace(r.FormValue("listing[location]"))
	in.Country = strings.TrimSpace(r.FormValue("listing[country]"))

	if raw := strings.TrimSpace(r.FormValue("listing[price]")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(price, 0) || math.IsNaN(price) {
			return in, nil, web.BadRequest(`"price" must be a number`)
		}
		in.Price = &price
	}

	if r.MultipartForm == nil {
		return in, nil, nil
	}
	file, header, err := r.FormFile("listing[image]")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, &web.StatusError{Status: http.StatusBadRequest, Message: "Invalid image upload", Err: err}
	}

	return in, &storage.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, nil
}

func closeUpload(u *storage.Upload) {
	if u == nil {
		return
	}
	if c, ok := u.Body.(io.Closer); ok {
		_ = c.Close()
	}
}
