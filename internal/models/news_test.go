package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
)

func TestNewsRecordDecodesLooseFields(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantID    int64
		wantDates map[string]string
	}{
		{
			name:      "numeric id and snake date",
			payload:   `{"id": 42, "title": "IPL final", "created_at": "2024-05-01T10:00:00Z"}`,
			wantID:    42,
			wantDates: map[string]string{"created_at": "2024-05-01T10:00:00Z"},
		},
		{
			name:      "string id and epoch millis",
			payload:   `{"id": "17", "title": "x", "timestamp": 1714557600000}`,
			wantID:    17,
			wantDates: map[string]string{"timestamp": "1714557600000"},
		},
		{
			name:      "null and empty dates dropped",
			payload:   `{"id": 3, "createdAt": null, "pubDate": "  ", "date": "2024-01-01"}`,
			wantID:    3,
			wantDates: map[string]string{"date": "2024-01-01"},
		},
		{
			name:      "garbage id",
			payload:   `{"id": {"nested": true}, "title": "x"}`,
			wantID:    0,
			wantDates: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec models.NewsRecord
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &rec))
			require.Equal(t, tt.wantID, rec.ID)
			require.Equal(t, tt.wantDates, rec.Dates)
		})
	}
}

func TestNewsRecordKeepsDateKeysOnEncode(t *testing.T) {
	rec := models.NewsRecord{
		ID:      9,
		Title:   "Chess Olympiad",
		Content: "<p>Round one</p>",
		Dates:   map[string]string{"publishedAt": "2024-05-03"},
		Sports:  []string{"chess"},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, float64(9), raw["id"])
	require.Equal(t, "2024-05-03", raw["publishedAt"])
	require.Equal(t, "Chess Olympiad", raw["title"])
	require.NotContains(t, raw, "Dates")

	var back models.NewsRecord
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, rec.ID, back.ID)
	require.Equal(t, rec.Dates, back.Dates)
	require.Equal(t, rec.Sports, back.Sports)
}

func TestNewsRecordHelpers(t *testing.T) {
	require.Equal(t, "", models.NewsRecord{}.DocumentID())
	require.Equal(t, "12", models.NewsRecord{ID: 12}.DocumentID())

	require.True(t, models.NewsRecord{ContentType: "Video"}.IsVideo())
	require.True(t, models.NewsRecord{VideoPath: "/uploads/a.mp4"}.IsVideo())
	require.False(t, models.NewsRecord{ContentType: "standard"}.IsVideo())
}
