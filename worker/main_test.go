package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/config"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/dedupe"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/logger"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
	"github.com/AbhinabTripathy/newztok.new-sub000/internal/sports"
)

type indexed struct {
	id  string
	rec models.NewsRecord
}

type stubIndexer struct {
	docs []indexed
	err  error
}

func (s *stubIndexer) IndexNews(_ context.Context, id string, rec models.NewsRecord) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, indexed{id: id, rec: rec})
	return nil
}

type stubDLQ struct {
	msgs []kafka.Message
	err  error
}

func (s *stubDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

var fixedNow = time.Date(2024, 5, 4, 8, 0, 0, 0, time.UTC)

func newIngester(idx newsIndexer) *ingester {
	return &ingester{
		log:   logger.Discard(),
		index: idx,
		cache: dedupe.NewCache(100, time.Hour),
		table: sports.Default(),
		cfg:   &config.Worker{KeywordLimit: 5, KeywordMinLength: 3},
		now:   func() time.Time { return fixedNow },
	}
}

func message(t *testing.T, payload map[string]any) kafka.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessIndexesTaggedRecord(t *testing.T) {
	idx := &stubIndexer{}
	ing := newIngester(idx)

	msg := message(t, map[string]any{
		"id":        101,
		"title":     "  IPL final: Mumbai Indians win  ",
		"content":   "<p>Rohit Sharma lifts the trophy at Wankhede</p>",
		"createdAt": "2024-05-01T18:30:00Z",
		"state":     "Maharashtra",
	})

	require.NoError(t, ing.process(context.Background(), msg))
	require.Len(t, idx.docs, 1)

	doc := idx.docs[0]
	require.Equal(t, "101", doc.id)
	require.Equal(t, "IPL final: Mumbai Indians win", doc.rec.Title)
	require.Equal(t, []string{"cricket"}, doc.rec.Sports)
	require.NotEmpty(t, doc.rec.Keywords)
	require.Equal(t, fixedNow, *doc.rec.IndexedAt)
	require.Equal(t, "2024-05-01T18:30:00Z", doc.rec.Dates["createdAt"])

	require.NoError(t, ing.process(context.Background(), msg))
	require.Len(t, idx.docs, 1, "replayed event must be skipped")
}

func TestProcessReindexesEditedRecord(t *testing.T) {
	idx := &stubIndexer{}
	ing := newIngester(idx)

	first := message(t, map[string]any{"id": 7, "title": "Gukesh leads", "updatedAt": "2024-05-01T10:00:00Z"})
	edited := message(t, map[string]any{"id": 7, "title": "Gukesh wins", "createdAt": "2024-05-01T12:00:00Z"})

	require.NoError(t, ing.process(context.Background(), first))
	require.NoError(t, ing.process(context.Background(), edited))
	require.Len(t, idx.docs, 2)
	require.Equal(t, []string{"chess"}, idx.docs[1].rec.Sports)
}

func TestProcessDerivesStableIDWhenMissing(t *testing.T) {
	idx := &stubIndexer{}
	ing := newIngester(idx)
	msg := message(t, map[string]any{"title": "Hill marathon", "date": "2024-05-01"})

	require.NoError(t, ing.process(context.Background(), msg))
	require.Len(t, idx.docs, 1)
	require.NotEmpty(t, idx.docs[0].id)
	require.Empty(t, idx.docs[0].rec.Sports)

	require.NoError(t, ing.process(context.Background(), msg))
	require.Len(t, idx.docs, 1, "replayed event without id must be skipped")

	// A fresh worker has no cache but must still land on the same document.
	other := &stubIndexer{}
	require.NoError(t, newIngester(other).process(context.Background(), msg))
	require.Equal(t, idx.docs[0].id, other.docs[0].id)

	require.NoError(t, ing.process(context.Background(), message(t, map[string]any{"title": "Hill marathon", "date": "2024-05-02"})))
	require.Len(t, idx.docs, 2)
	require.NotEqual(t, idx.docs[0].id, idx.docs[1].id)
}

func TestContentID(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := models.NewsRecord{Title: "Hill marathon", Content: "Runners gather"}

	require.Equal(t, contentID(a, ts), contentID(a, ts))
	require.NotEqual(t, contentID(a, ts), contentID(models.NewsRecord{Title: "Hill marathon"}, ts))
	require.NotEqual(t, contentID(a, ts), contentID(a, ts.Add(time.Second)))
}

func TestProcessSkipsUnpublished(t *testing.T) {
	idx := &stubIndexer{}
	ing := newIngester(idx)

	for _, status := range []string{"pending", "rejected", "draft"} {
		msg := message(t, map[string]any{"id": 1, "title": "Kohli", "status": status})
		require.NoError(t, ing.process(context.Background(), msg))
	}
	require.Empty(t, idx.docs)

	msg := message(t, map[string]any{"id": 1, "title": "Kohli", "status": "Approved"})
	require.NoError(t, ing.process(context.Background(), msg))
	require.Len(t, idx.docs, 1)
}

func TestProcessRejectsBadPayloads(t *testing.T) {
	ing := newIngester(&stubIndexer{})

	err := ing.process(context.Background(), kafka.Message{Value: []byte("{not json")})
	require.Error(t, err)

	err = ing.process(context.Background(), message(t, map[string]any{"id": 1, "title": "  ", "content": ""}))
	require.ErrorIs(t, err, errEmptyRecord)
}

func TestProcessPropagatesIndexFailure(t *testing.T) {
	idx := &stubIndexer{err: errors.New("es down")}
	ing := newIngester(idx)
	msg := message(t, map[string]any{"id": 3, "title": "Sindhu wins"})

	require.Error(t, ing.process(context.Background(), msg))

	idx.err = nil
	require.NoError(t, ing.process(context.Background(), msg))
	require.Len(t, idx.docs, 1, "failed attempt must not poison the dedupe cache")
}

func TestSendToDLQ(t *testing.T) {
	dlq := &stubDLQ{}
	msg := kafka.Message{Partition: 2, Offset: 99, Value: []byte(`{"id":1}`)}

	require.True(t, sendToDLQ(context.Background(), logger.Discard(), dlq, msg, errors.New("boom")))
	require.Len(t, dlq.msgs, 1)

	headers := make(map[string]string)
	for _, h := range dlq.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "2", headers["original_partition"])
	require.Equal(t, "99", headers["original_offset"])
	require.Equal(t, "boom", headers["error"])
}

func TestSendToDLQGivesUpOnCancel(t *testing.T) {
	dlq := &stubDLQ{err: errors.New("broker unavailable")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.False(t, sendToDLQ(ctx, logger.Discard(), dlq, kafka.Message{}, errors.New("boom")))
}

func TestPublishable(t *testing.T) {
	require.True(t, publishable(""))
	require.True(t, publishable("published"))
	require.True(t, publishable(" APPROVED "))
	require.False(t, publishable("pending"))
}
