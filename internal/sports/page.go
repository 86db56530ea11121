package sports

import (
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/recency"
)

// GeneralBucket names the section holding records no sport claimed.
const GeneralBucket = "general"

// Slot boundaries the sports page lays its sections out with.
const (
	VideoSlots  = 5
	TrendingEnd = 20
	StripSlots  = 18
)

// Slots are the three overlapping views a section is rendered from.
type Slots struct {
	Video    []models.NewsRecord `json:"video"`
	Trending []models.NewsRecord `json:"trending"`
	Strip    []models.NewsRecord `json:"strip"`
}

// Section is one classified, newest-first bucket.
type Section struct {
	Name    string              `json:"name"`
	Records []models.NewsRecord `json:"-"`
	Slots   Slots               `json:"slots"`
}

// Page is the full sports page: the general bucket then one section per sport.
type Page struct {
	General Section   `json:"general"`
	Sports  []Section `json:"sports"`
}

// Slice cuts an ordered list into video [0:5], trending [5:20] and strip [0:18].
func Slice(records []models.NewsRecord) Slots {
	return Slots{
		Video:    window(records, 0, VideoSlots),
		Trending: window(records, VideoSlots, TrendingEnd),
		Strip:    window(records, 0, StripSlots),
	}
}

func window(records []models.NewsRecord, from, to int) []models.NewsRecord {
	if from > len(records) {
		from = len(records)
	}
	if to > len(records) {
		to = len(records)
	}
	out := make([]models.NewsRecord, to-from)
	copy(out, records[from:to])
	return out
}

// Section classifies records for sport, sorts them newest first and slices them.
func (t *Table) Section(records []models.NewsRecord, sport string) Section {
	sorted := recency.Sort(t.Filter(records, sport))
	return Section{Name: Normalize(sport), Records: sorted, Slots: Slice(sorted)}
}

// GeneralSection is Section for the general bucket.
func (t *Table) GeneralSection(records []models.NewsRecord) Section {
	sorted := recency.Sort(t.General(records))
	return Section{Name: GeneralBucket, Records: sorted, Slots: Slice(sorted)}
}

// BuildPage assembles the general section and one section per sport.
// With no sports given, every sport in the table is included.
func (t *Table) BuildPage(records []models.NewsRecord, sports ...string) Page {
	if len(sports) == 0 {
		sports = t.Names()
	}

	page := Page{
		General: t.GeneralSection(records),
		Sports:  make([]Section, 0, len(sports)),
	}
	for _, name := range sports {
		page.Sports = append(page.Sports, t.Section(records, name))
	}
	return page
}
