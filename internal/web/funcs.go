package web

import (
	"fmt"
	"html/template"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.MustParse("en-IN"))

var funcs = template.FuncMap{
	"price":  FormatPrice,
	"add":    func(a, b int) int { return a + b },
	"sub":    func(a, b int) int { return a - b },
	"seq":    seq,
	"date":   func(t time.Time) string { return t.Format("02 Jan 2006") },
	"stars":  func(n int) []struct{} { return make([]struct{}, max(n, 0)) },
	"rating": formatRating,
}

// FormatPrice groups digits the way prices are shown across the site.
func FormatPrice(v float64) string {
	if v == math.Trunc(v) {
		return pricePrinter.Sprintf("%d", int64(v))
	}
	return pricePrinter.Sprintf("%.2f", v)
}

// seq returns 1..n for page links.
func seq(n int) []int {
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, i)
	}
	return out
}

func formatRating(avg *float64) string {
	if avg == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *avg)
}
