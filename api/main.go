package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/config"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/elasticsearch"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/logger"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/present"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/sports"
)

// newsStore is the slice of the Elasticsearch client the handlers use.
type newsStore interface {
	Health(ctx context.Context) error
	ListNews(ctx context.Context, params elasticsearch.FeedParams) ([]models.NewsRecord, error)
	SearchNews(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	table, err := sports.Load(cfg.KeywordsFile)
	if err != nil {
		log.Error("load keyword table", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{
		log:    log,
		cfg:    cfg,
		store:  esClient,
		table:  table,
		render: present.NewRenderer(time.Now),
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.Any("sports", table.Names()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log    *slog.Logger
	cfg    *config.API
	store  newsStore
	table  *sports.Table
	render *present.Renderer
}

type errorResponse struct {
	Error string `json:"error"`
}

type sportsResponse struct {
	Sports []string `json:"sports"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/news", s.handleSearch)
	r.Route("/sports", func(r chi.Router) {
		r.Get("/", s.handlePage)
		r.Get("/list", s.handleList)
		r.Get("/{sport}", s.handleSection)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Keywords: parseCSV(q.Get("keywords")),
		State:    strings.TrimSpace(q.Get("state")),
		Category: strings.TrimSpace(q.Get("category")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
	}
	if sport := strings.TrimSpace(q.Get("sport")); sport != "" {
		params.Sport = sports.Normalize(sport)
	}

	result, err := s.store.SearchNews(ctx, params)
	if err != nil {
		s.log.Error("search news", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sportsResponse{Sports: s.table.Names()})
}

// handlePage renders the general bucket followed by every sport.
func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	records, ok := s.feed(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.render.Page(s.table.BuildPage(records)))
}

// handleSection renders a single bucket. "general" selects the unclaimed
// records; an unknown sport gets the whole feed, newest first.
func (s *server) handleSection(w http.ResponseWriter, r *http.Request) {
	name := sports.Normalize(chi.URLParam(r, "sport"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sport is required"})
		return
	}

	records, ok := s.feed(w, r)
	if !ok {
		return
	}

	var section sports.Section
	if name == sports.GeneralBucket {
		section = s.table.GeneralSection(records)
	} else {
		section = s.table.Section(records, name)
	}
	writeJSON(w, http.StatusOK, s.render.Section(section))
}

// feed pulls the raw records a page is built from and writes the error
// response itself when the store fails.
func (s *server) feed(w http.ResponseWriter, r *http.Request) ([]models.NewsRecord, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	records, err := s.store.ListNews(ctx, elasticsearch.FeedParams{
		State:    strings.TrimSpace(q.Get("state")),
		District: strings.TrimSpace(q.Get("district")),
		Size:     s.cfg.FeedSize,
	})
	if err != nil {
		s.log.Error("list news", slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return nil, false
	}
	return records, true
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
