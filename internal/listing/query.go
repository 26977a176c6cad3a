package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultPage  = 1
	defaultLimit = 12
	maxLimit     = 48

	// maxPage keeps (page-1)*limit within an int.
	maxPage = math.MaxInt / maxLimit
)

type Sort string

const (
	SortDefault   Sort = ""
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
	SortNewest    Sort = "newest"
)

// Filters echoes the raw filter values back into the index form.
type Filters struct {
	MinPrice string
	MaxPrice string
	Category string
	Sort     string
}

type IndexQuery struct {
	MinPrice *float64
	MaxPrice *float64
	Category *Category
	Sort     Sort
	Page     int
	Limit    int
	Filters  Filters
}

// ParseIndexQuery reads the index filters. Unparsable or non-finite values
// are ignored, page is clamped to [1, maxPage] and limit to [1, 48].
func ParseIndexQuery(values url.Values) IndexQuery {
	q := IndexQuery{
		Page:  defaultPage,
		Limit: defaultLimit,
		Filters: Filters{
			MinPrice: strings.TrimSpace(values.Get("minPrice")),
			MaxPrice: strings.TrimSpace(values.Get("maxPrice")),
			Category: strings.TrimSpace(values.Get("category")),
			Sort:     strings.TrimSpace(values.Get("sort")),
		},
	}

	q.MinPrice = parsePrice(q.Filters.MinPrice)
	q.MaxPrice = parsePrice(q.Filters.MaxPrice)

	if c, ok := CategoryByKey(q.Filters.Category); ok {
		q.Category = &c
	}

	switch s := Sort(q.Filters.Sort); s {
	case SortPriceAsc, SortPriceDesc, SortNewest:
		q.Sort = s
	}

	// Zero counts as absent, like an empty value.
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n != 0 {
		q.Page = min(max(n, 1), maxPage)
	}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n != 0 {
		q.Limit = min(max(n, 1), maxLimit)
	}

	return q
}

func parsePrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (q IndexQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Filter is what the store applies to the listing table.
func (q IndexQuery) Filter() Filter {
	f := Filter{MinPrice: q.MinPrice, MaxPrice: q.MaxPrice}
	if q.Category != nil {
		f.Terms = q.Category.Terms
	}
	return f
}

// Filter restricts a listing query. Terms match any text field, any term.
type Filter struct {
	MinPrice *float64
	MaxPrice *float64
	Terms    []string
}

type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

func newPagination(page, limit, total int) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: max(totalPages, 1),
	}
}

type IndexPage struct {
	Listings   []*Listing
	Filters    Filters
	Pagination Pagination
	Categories []Category
}

// PageURL links to page n keeping the current filters.
func (p *IndexPage) PageURL(n int) string {
	v := url.Values{}
	if p.Filters.MinPrice != "" {
		v.Set("minPrice", p.Filters.MinPrice)
	}
	if p.Filters.MaxPrice != "" {
		v.Set("maxPrice", p.Filters.MaxPrice)
	}
	if p.Filters.Category != "" {
		v.Set("category", p.Filters.Category)
	}
	if p.Filters.Sort != "" {
		v.Set("sort", p.Filters.Sort)
	}
	v.Set("page", strconv.Itoa(n))
	v.Set("limit", strconv.Itoa(p.Pagination.Limit))
	return "/listings?" + v.Encode()
}

// CategoryURL links to the index filtered by key.
func (p *IndexPage) CategoryURL(key string) string {
	v := url.Values{}
	v.Set("category", key)
	if p.Filters.Sort != "" {
		v.Set("sort", p.Filters.Sort)
	}
	return "/listings?" + v.Encode()
}
