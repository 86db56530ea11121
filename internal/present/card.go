package present

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/processing"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/recency"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/sports"
)

const excerptWords = 30

// Card is what the sports page renders for one record.
type Card struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Image       string   `json:"image,omitempty"`
	Video       string   `json:"video,omitempty"`
	ContentType string   `json:"content_type"`
	Category    string   `json:"category,omitempty"`
	Sports      []string `json:"sports,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Ago         string   `json:"ago,omitempty"`
}

// SlotCards mirrors sports.Slots with cards.
type SlotCards struct {
	Video    []Card `json:"video"`
	Trending []Card `json:"trending"`
	Strip    []Card `json:"strip"`
}

// SectionCards is one rendered bucket.
type SectionCards struct {
	Name  string    `json:"name"`
	Total int       `json:"total"`
	Slots SlotCards `json:"slots"`
}

// PageCards is the rendered sports page.
type PageCards struct {
	General SectionCards   `json:"general"`
	Sports  []SectionCards `json:"sports"`
}

// Renderer turns records into cards relative to a fixed clock.
type Renderer struct {
	now func() time.Time
}

// NewRenderer returns a Renderer; a nil clock means time.Now.
func NewRenderer(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{now: now}
}

// Card renders a single record.
func (r *Renderer) Card(rec models.NewsRecord) Card {
	card := Card{
		ID:          rec.ID,
		Title:       strings.TrimSpace(rec.Title),
		Excerpt:     processing.Excerpt(rec.Content, excerptWords),
		Image:       ResolveImage(rec),
		Video:       rec.VideoPath,
		ContentType: "standard",
		Category:    rec.Category,
		Sports:      rec.Sports,
	}
	if rec.IsVideo() {
		card.ContentType = "video"
	}
	if ts, ok := recency.Lookup(rec); ok {
		card.PublishedAt = ts.Format(time.RFC3339)
		card.Ago = humanize.RelTime(ts, r.now(), "ago", "from now")
	}
	return card
}

// Cards renders a list, keeping its order.
func (r *Renderer) Cards(records []models.NewsRecord) []Card {
	out := make([]Card, 0, len(records))
	for _, rec := range records {
		out = append(out, r.Card(rec))
	}
	return out
}

// Section renders a classified section.
func (r *Renderer) Section(s sports.Section) SectionCards {
	return SectionCards{
		Name:  s.Name,
		Total: len(s.Records),
		Slots: SlotCards{
			Video:    r.Cards(s.Slots.Video),
			Trending: r.Cards(s.Slots.Trending),
			Strip:    r.Cards(s.Slots.Strip),
		},
	}
}

// Page renders the whole sports page.
func (r *Renderer) Page(p sports.Page) PageCards {
	out := PageCards{
		General: r.Section(p.General),
		Sports:  make([]SectionCards, 0, len(p.Sports)),
	}
	for _, s := range p.Sports {
		out.Sports = append(out.Sports, r.Section(s))
	}
	return out
}

// ResolveImage picks the record's display image: the explicit image fields
// first, then the first image embedded in the content.
func ResolveImage(rec models.NewsRecord) string {
	for _, candidate := range []string{rec.FeaturedImage, rec.ThumbnailURL, rec.ImageURL, rec.Image} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return processing.FirstImage(rec.Content)
}
