package sports

import (
	"strings"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
)

// haystack holds the lower-cased fields a record is matched on.
// Title and content come first; weak matching only looks at those two.
type haystack [4]string

func newHaystack(rec models.NewsRecord) haystack {
	return haystack{
		strings.ToLower(rec.Title),
		strings.ToLower(rec.Content),
		strings.ToLower(rec.Category),
		strings.ToLower(rec.Subcategory),
	}
}

func (h haystack) has(terms []string) bool {
	return containsAny(h[:], terms)
}

func (h haystack) bodyHas(terms []string) bool {
	return containsAny(h[:2], terms)
}

func containsAny(fields []string, terms []string) bool {
	for _, term := range terms {
		for _, field := range fields {
			if field != "" && strings.Contains(field, term) {
				return true
			}
		}
	}
	return false
}

// Accepts reports whether rec belongs in the sport's bucket.
func (s Sport) Accepts(rec models.NewsRecord) bool {
	return s.accepts(newHaystack(rec))
}

func (s Sport) accepts(h haystack) bool {
	if !s.Staged() {
		return h.has(s.Keywords)
	}

	if h.has(s.Exclude) {
		return false
	}
	if h.has(s.Strong) {
		return true
	}
	if len(s.Weak) == 0 {
		return false
	}
	return h.bodyHas(s.Weak) && h.bodyHas(s.Context)
}

// Filter returns the records that belong to sportName, in input order.
// An unknown sport returns records unchanged.
func (t *Table) Filter(records []models.NewsRecord, sportName string) []models.NewsRecord {
	sport, ok := t.Lookup(sportName)
	if !ok {
		return records
	}

	out := make([]models.NewsRecord, 0, len(records))
	for _, rec := range records {
		if sport.Accepts(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// General returns the records that match no term of any sport.
func (t *Table) General(records []models.NewsRecord) []models.NewsRecord {
	out := make([]models.NewsRecord, 0, len(records))
	for _, rec := range records {
		if !newHaystack(rec).has(t.union) {
			out = append(out, rec)
		}
	}
	return out
}

// Tags lists, in table order, every sport whose bucket would accept rec.
func (t *Table) Tags(rec models.NewsRecord) []string {
	h := newHaystack(rec)
	var tags []string
	for _, s := range t.sports {
		if s.accepts(h) {
			tags = append(tags, s.Name)
		}
	}
	return tags
}
