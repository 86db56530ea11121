package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/config"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/dedupe"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/elasticsearch"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/logger"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/processing"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/recency"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/sports"
)

const dlqAttempts = 5

// errEmptyRecord marks a publish event without title and content.
var errEmptyRecord = errors.New("record has no title and no content")

// recordNamespace scopes content-derived document ids.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("newztok:sports-desk:news"))

type newsIndexer interface {
	IndexNews(ctx context.Context, id string, rec models.NewsRecord) error
}

type dlqWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ingester turns CMS publish events into indexed, sport-tagged records.
type ingester struct {
	log   *slog.Logger
	index newsIndexer
	cache *dedupe.Cache
	table *sports.Table
	cfg   *config.Worker
	now   func() time.Time
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := esClient.EnsureIndex(ensureCtx); err != nil {
		log.Warn("ensure index failed, indexing will rely on dynamic mapping", slog.Any("err", err))
	}
	cancel()

	ing := &ingester{
		log:   log,
		index: esClient,
		cache: dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL),
		table: table,
		cfg:   cfg,
		now:   time.Now,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlq := &kafka.Writer{
		Addr:        kafka.TCP(cfg.KafkaBrokers...),
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	}
	defer dlq.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.Int("sports", len(table.Names())),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := ing.process(ctx, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlq, msg, err) {
				// Leave the offset uncommitted so the message is replayed on restart.
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// process handles one publish event. Duplicates and unpublished records are
// acknowledged without indexing.
func (in *ingester) process(ctx context.Context, msg kafka.Message) error {
	var rec models.NewsRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	rec.Title = strings.TrimSpace(rec.Title)
	rec.Content = strings.TrimSpace(rec.Content)
	if rec.Title == "" && rec.Content == "" {
		return errEmptyRecord
	}

	if !publishable(rec.Status) {
		in.log.Debug("skip unpublished record",
			slog.Int64("id", rec.ID),
			slog.String("status", rec.Status),
		)
		return nil
	}

	resolved := recency.Resolve(rec)
	id := rec.DocumentID()
	if id == "" {
		id = contentID(rec, resolved)
	}

	key := dedupe.Key(id, resolved)
	if in.cache.IsSeen(key) {
		in.log.Debug("duplicate record", slog.String("id", id))
		return nil
	}

	rec.Sports = in.table.Tags(rec)
	rec.Keywords = processing.ExtractKeywords(
		rec.Title+" "+processing.PlainText(rec.Content),
		in.cfg.KeywordLimit,
		in.cfg.KeywordMinLength,
	)
	indexedAt := in.now().UTC()
	rec.IndexedAt = &indexedAt

	if err := in.index.IndexNews(ctx, id, rec); err != nil {
		return err
	}

	in.cache.MarkSeen(key)
	in.log.Info("indexed record",
		slog.String("id", id),
		slog.String("title", rec.Title),
		slog.Any("sports", rec.Sports),
	)
	return nil
}

// contentID names a record that arrived without an id. The same title, content
// and resolved time always give the same id, so replays overwrite one document.
func contentID(rec models.NewsRecord, resolved time.Time) string {
	name := rec.Title + "\x00" + rec.Content + "\x00" + resolved.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(recordNamespace, []byte(name)).String()
}

// publishable accepts records the desk approved. Events without a status come
// from the publish topic and are taken as published.
func publishable(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "published", "approved":
		return true
	default:
		return false
	}
}

// sendToDLQ copies msg to the dead-letter topic with exponential backoff and
// reports whether it landed.
func sendToDLQ(ctx context.Context, log *slog.Logger, w dlqWriter, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range dlqAttempts {
		err := w.WriteMessages(ctx, dlqMsg)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
	}

	log.Error("DLQ write exhausted retries",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}
