package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/config"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/elasticsearch"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/logger"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/present"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/sports"
)

type stubStore struct {
	records   []models.NewsRecord
	err       error
	healthErr error

	feed   elasticsearch.FeedParams
	search elasticsearch.SearchParams
}

func (s *stubStore) Health(context.Context) error { return s.healthErr }

func (s *stubStore) ListNews(_ context.Context, params elasticsearch.FeedParams) ([]models.NewsRecord, error) {
	s.feed = params
	return s.records, s.err
}

func (s *stubStore) SearchNews(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.search = params
	if s.err != nil {
		return nil, s.err
	}
	return &elasticsearch.SearchResult{Total: int64(len(s.records)), Items: s.records}, nil
}

func record(id int64, title, created string) models.NewsRecord {
	rec := models.NewsRecord{ID: id, Title: title}
	if created != "" {
		rec.Dates = map[string]string{"createdAt": created}
	}
	return rec
}

func newTestServer(store *stubStore) http.Handler {
	srv := &server{
		log:    logger.Discard(),
		cfg:    &config.API{DefaultPage: 20, MaxPage: 100, FeedSize: 300},
		store:  store,
		table:  sports.Default(),
		render: present.NewRenderer(func() time.Time { return time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC) }),
	}
	return srv.routes()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func cardIDs(cards []present.Card) []int64 {
	ids := make([]int64, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}

var feed = []models.NewsRecord{
	record(1, "Kohli scores a century", "2024-05-01T10:00:00Z"),
	record(2, "Gukesh wins the Candidates", "2024-05-02T10:00:00Z"),
	record(3, "City council meeting", "2024-05-03T09:00:00Z"),
	record(4, "IPL playoffs schedule", "2024-05-03T10:00:00Z"),
	record(5, "Monsoon arrives early", ""),
}

func TestSportSection(t *testing.T) {
	store := &stubStore{records: feed}
	h := newTestServer(store)

	res := get(t, h, "/sports/Cricket?state=Bihar&district=Patna")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "Bihar", store.feed.State)
	require.Equal(t, "Patna", store.feed.District)
	require.Equal(t, 300, store.feed.Size)

	section := decode[present.SectionCards](t, res)
	require.Equal(t, "cricket", section.Name)
	require.Equal(t, 2, section.Total)
	require.Equal(t, []int64{4, 1}, cardIDs(section.Slots.Video))
	require.Empty(t, section.Slots.Trending)
	require.Equal(t, []int64{4, 1}, cardIDs(section.Slots.Strip))
	require.Equal(t, "2 hours ago", section.Slots.Video[0].Ago)
}

func TestUnknownSportPassesFeedThrough(t *testing.T) {
	h := newTestServer(&stubStore{records: feed})

	section := decode[present.SectionCards](t, get(t, h, "/sports/curling"))
	require.Equal(t, "curling", section.Name)
	require.Equal(t, len(feed), section.Total)
	require.Equal(t, []int64{4, 3, 2, 1, 5}, cardIDs(section.Slots.Video))
}

func TestGeneralSection(t *testing.T) {
	h := newTestServer(&stubStore{records: feed})

	section := decode[present.SectionCards](t, get(t, h, "/sports/general"))
	require.Equal(t, sports.GeneralBucket, section.Name)
	require.Equal(t, []int64{3, 5}, cardIDs(section.Slots.Strip))
}

func TestSportsPage(t *testing.T) {
	h := newTestServer(&stubStore{records: feed})

	res := get(t, h, "/sports")
	require.Equal(t, http.StatusOK, res.Code)

	page := decode[present.PageCards](t, res)
	require.Equal(t, 2, page.General.Total)
	require.Len(t, page.Sports, len(sports.Default().Names()))

	totals := make(map[string]int)
	for _, s := range page.Sports {
		totals[s.Name] = s.Total
	}
	require.Equal(t, 2, totals["cricket"])
	require.Equal(t, 1, totals["chess"])
	require.Equal(t, 0, totals["football"])
}

func TestSportsList(t *testing.T) {
	h := newTestServer(&stubStore{})

	out := decode[sportsResponse](t, get(t, h, "/sports/list"))
	require.Equal(t, sports.Default().Names(), out.Sports)
}

func TestFeedFailure(t *testing.T) {
	h := newTestServer(&stubStore{err: errors.New("es down")})

	res := get(t, h, "/sports/chess")
	require.Equal(t, http.StatusBadGateway, res.Code)
	require.Equal(t, "es down", decode[errorResponse](t, res).Error)
}

func TestSearchForwardsFilters(t *testing.T) {
	store := &stubStore{records: feed[:2]}
	h := newTestServer(store)

	res := get(t, h, "/news?q=final&sport=Table%20Tennis&state=UP&keywords=ipl,%20Final&from=40&size=500")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, elasticsearch.SearchParams{
		Query:    "final",
		Keywords: []string{"ipl", "final"},
		State:    "UP",
		Sport:    "table-tennis",
		From:     40,
		Size:     100,
	}, store.search)

	out := decode[elasticsearch.SearchResult](t, res)
	require.Equal(t, int64(2), out.Total)
	require.Len(t, out.Items, 2)
}

func TestSearchDefaults(t *testing.T) {
	store := &stubStore{}
	h := newTestServer(store)

	get(t, h, "/news?size=abc")
	require.Equal(t, 20, store.search.Size)
	require.Equal(t, 0, store.search.From)
	require.Empty(t, store.search.Sport)
}

func TestHealth(t *testing.T) {
	store := &stubStore{}
	h := newTestServer(store)
	require.Equal(t, http.StatusOK, get(t, h, "/health").Code)

	store.healthErr = errors.New("red")
	require.Equal(t, http.StatusServiceUnavailable, get(t, h, "/health").Code)
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 7},
		{"x", 7},
		{"-3", 7},
		{"0", 0},
		{"12", 12},
		{"999", 50},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, clampInt(tt.raw, 7, 50))
		})
	}
}
