package itinerary

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/web"
)

// Page is the itinerary form and, after a submit, its result.
type Page struct {
	Place     string
	Days      string
	Itinerary template.HTML
	Failed    bool
}

type Handler struct {
	planner *Planner
	views   *web.Renderer
}

func NewHandler(planner *Planner, views *web.Renderer) *Handler {
	return &Handler{planner: planner, views: views}
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "listings/itinerary", Page{})
}

// Generate always renders the form page; failures show FailureMessage in
// place of the itinerary.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	page := Page{
		Place: strings.TrimSpace(r.PostFormValue("place")),
		Days:  strings.TrimSpace(r.PostFormValue("days")),
	}

	days, _ := strconv.Atoi(page.Days)
	html, err := h.planner.Generate(r.Context(), page.Place, days)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("error while generating itinerary", "error", err)
		page.Failed = true
		page.Itinerary = template.HTML(template.HTMLEscapeString(FailureMessage))
	} else {
		page.Itinerary = html
	}

	h.views.Render(w, r, http.StatusOK, "listings/itinerary", page)
}
