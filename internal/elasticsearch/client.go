package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/AbhinabTripathy/newztok.new-sub000/internal/models"
)

// Client wraps go-elasticsearch with the queries the sports desk needs.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// FeedParams select the raw feed a sports page is built from.
type FeedParams struct {
	State    string
	District string
	Size     int
}

// SearchParams narrow the search endpoint query.
type SearchParams struct {
	Query    string
	Keywords []string
	State    string
	Category string
	Sport    string
	From     int
	Size     int
}

// SearchResult bundles hits and total count.
type SearchResult struct {
	Total int64               `json:"total"`
	Items []models.NewsRecord `json:"items"`
}

// indexMapping keeps filterable fields as keywords so term queries match exactly.
// Date detection is off so publisher date strings of any shape index as keywords.
const indexMapping = `{
  "mappings": {
    "date_detection": false,
    "properties": {
      "title":       {"type": "text"},
      "content":     {"type": "text"},
      "category":    {"type": "keyword", "normalizer": "lowercase"},
      "subcategory": {"type": "keyword", "normalizer": "lowercase"},
      "state":       {"type": "keyword", "normalizer": "lowercase"},
      "district":    {"type": "keyword", "normalizer": "lowercase"},
      "sports":      {"type": "keyword"},
      "keywords":    {"type": "keyword"},
      "indexed_at":  {"type": "date"}
    },
    "dynamic_templates": [
      {"loose_strings": {"match_mapping_type": "string", "mapping": {"type": "keyword", "ignore_above": 256}}}
    ]
  },
  "settings": {
    "analysis": {
      "normalizer": {
        "lowercase": {"type": "custom", "filter": ["lowercase"]}
      }
    }
  }
}`

// New instantiates the Elasticsearch client.
func New(addr, index string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates the news index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index: unexpected status %s", res.Status())
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index failed: %s", strings.TrimSpace(string(body)))
	}

	c.log.Info("created index", slog.String("index", c.index))
	return nil
}

// IndexNews writes a record into Elasticsearch under id.
func (c *Client) IndexNews(ctx context.Context, id string, rec models.NewsRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index record failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// ListNews returns the most recently indexed records, optionally limited to a
// state or district. Ordering by publish date is left to the caller because the
// date field differs per record.
func (c *Client) ListNews(ctx context.Context, params FeedParams) ([]models.NewsRecord, error) {
	if params.Size <= 0 {
		params.Size = 300
	}

	filters := make([]map[string]any, 0, 2)
	if params.State != "" {
		filters = append(filters, termFilter("state", strings.ToLower(params.State)))
	}
	if params.District != "" {
		filters = append(filters, termFilter("district", strings.ToLower(params.District)))
	}

	body := map[string]any{
		"size":  params.Size,
		"query": boolQuery(nil, filters),
		"sort": []map[string]any{
			{"indexed_at": map[string]any{"order": "desc", "unmapped_type": "date"}},
		},
	}

	result, err := c.search(ctx, body)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// SearchNews executes a full-text query with optional filters.
func (c *Client) SearchNews(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Size <= 0 {
		params.Size = 20
	}
	if params.Size > 200 {
		params.Size = 200
	}
	if params.From < 0 {
		params.From = 0
	}

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, 4)

	if params.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Query,
				"fields": []string{"title^2", "content"},
			},
		})
	}
	if len(params.Keywords) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"keywords": params.Keywords},
		})
	}
	if params.State != "" {
		filters = append(filters, termFilter("state", strings.ToLower(params.State)))
	}
	if params.Category != "" {
		filters = append(filters, termFilter("category", strings.ToLower(params.Category)))
	}
	if params.Sport != "" {
		filters = append(filters, termFilter("sports", params.Sport))
	}

	body := map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query":            boolQuery(must, filters),
		"sort": []map[string]any{
			{"indexed_at": map[string]any{"order": "desc", "unmapped_type": "date"}},
		},
	}

	return c.search(ctx, body)
}

func (c *Client) search(ctx context.Context, body map[string]any) (*SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) (*SearchResult, error) {
	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.NewsRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]models.NewsRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}

	return &SearchResult{
		Total: parsed.Hits.Total.Value,
		Items: items,
	}, nil
}

func termFilter(field, value string) map[string]any {
	return map[string]any{
		"term": map[string]any{field: value},
	}
}

func boolQuery(must, filters []map[string]any) map[string]any {
	q := map[string]any{}
	if len(must) > 0 {
		q["must"] = must
	}
	if len(filters) > 0 {
		q["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		q["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}
	return map[string]any{"bool": q}
}

// DeleteOlderThan removes records indexed before now-maxAge using batched
// delete-by-query. It loops until a batch deletes fewer than batchSize documents.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	totalDeleted := int64(0)

	for {
		body := map[string]any{
			"query": map[string]any{
				"range": map[string]any{
					"indexed_at": map[string]any{"lte": cutoff},
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return totalDeleted, fmt.Errorf("marshal delete body: %w", err)
		}

		res, err := c.es.DeleteByQuery(
			[]string{c.index},
			bytes.NewReader(payload),
			c.es.DeleteByQuery.WithContext(ctx),
			c.es.DeleteByQuery.WithWaitForCompletion(true),
			c.es.DeleteByQuery.WithConflicts("proceed"),
			c.es.DeleteByQuery.WithScrollSize(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		deleted, err := decodeDeleted(res)
		if err != nil {
			return totalDeleted, err
		}
		totalDeleted += deleted

		if deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}

func decodeDeleted(res *esapi.Response) (int64, error) {
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}

// Health reports cluster health.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}
