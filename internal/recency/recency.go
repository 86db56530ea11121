package recency

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
)

// minEpochDigits is the shortest integer part read as epoch milliseconds
// (anything after mid-January 1970).
const minEpochDigits = 10

// Epoch is the time assigned to records without a parseable date.
var Epoch = time.Unix(0, 0).UTC()

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
}

// Resolve returns the record's effective timestamp: the first date field, in
// models.DateFields order, whose value parses. Falls back to Epoch.
func Resolve(rec models.NewsRecord) time.Time {
	if ts, ok := Lookup(rec); ok {
		return ts
	}
	return Epoch
}

// Lookup is Resolve without the epoch fallback.
func Lookup(rec models.NewsRecord) (time.Time, bool) {
	for _, name := range models.DateFields {
		raw, ok := rec.Dates[name]
		if !ok {
			continue
		}
		if ts, ok := Parse(raw); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Parse understands the date layouts seen in CMS payloads and epoch milliseconds.
// Numbers with fewer than minEpochDigits integer digits are not taken as epochs.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if ms, err := strconv.ParseFloat(raw, 64); err == nil && epochDigits(raw) {
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}

	return time.Time{}, false
}

// Sort returns a copy of records ordered newest first. Records with equal
// timestamps, including those that all fell back to Epoch, are ordered by
// descending id.
func Sort(records []models.NewsRecord) []models.NewsRecord {
	type keyed struct {
		rec models.NewsRecord
		ts  time.Time
	}

	items := make([]keyed, len(records))
	for i, rec := range records {
		items[i] = keyed{rec: rec, ts: Resolve(rec)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].ts.Equal(items[j].ts) {
			return items[i].ts.After(items[j].ts)
		}
		return items[i].rec.ID > items[j].rec.ID
	})

	out := make([]models.NewsRecord, len(items))
	for i, item := range items {
		out[i] = item.rec
	}
	return out
}

func epochDigits(raw string) bool {
	intPart, _, _ := strings.Cut(strings.TrimPrefix(raw, "-"), ".")
	if len(intPart) < minEpochDigits {
		return false
	}
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
