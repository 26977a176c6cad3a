package itinerary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// FailureMessage is shown in place of an itinerary whenever generation fails.
const FailureMessage = "❌ Failed to generate itinerary. Please try again later."

var (
	ErrNotConfigured  = errors.New("itinerary model not configured")
	ErrInvalidRequest = errors.New("place and a positive number of days are required")
)

// Model produces text for a prompt.
type Model interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Planner struct {
	model Model
	md    goldmark.Markdown
}

// NewPlanner accepts a nil model; every request then fails with
// ErrNotConfigured.
func NewPlanner(model Model) *Planner {
	return &Planner{
		model: model,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func Prompt(place string, days int) string {
	return fmt.Sprintf("Create a detailed %d-day travel itinerary for %s, including sightseeing, food recommendations, local tips, and cultural experiences.", days, place)
}

// Generate asks the model for an itinerary and renders its markdown answer.
// Raw HTML in the answer is dropped by the renderer, so the result is safe
// to embed in a page.
func (p *Planner) Generate(ctx context.Context, place string, days int) (template.HTML, error) {
	place = strings.TrimSpace(place)
	if place == "" || days < 1 {
		return "", ErrInvalidRequest
	}
	if p.model == nil {
		return "", ErrNotConfigured
	}

	text, err := p.model.GenerateText(ctx, Prompt(place, days))
	if err != nil {
		return "", fmt.Errorf("generate itinerary: %w", err)
	}

	var buf bytes.Buffer
	if err := p.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render itinerary: %w", err)
	}

	return template.HTML(buf.String()), nil
}
