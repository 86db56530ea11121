package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DateFields lists the date keys publishers use, in resolution priority order.
var DateFields = []string{
	"created_at",
	"createdAt",
	"publishedAt",
	"published_at",
	"updatedAt",
	"updated_at",
	"date",
	"timestamp",
	"time",
	"datePublished",
	"pubDate",
	"dateCreated",
}

// NewsRecord is a published news post as served by the CMS and stored in Elasticsearch.
//
// ID and the date fields are decoded by hand because publishers disagree on their
// shape: ids arrive as numbers or numeric strings, dates as strings or epoch millis.
type NewsRecord struct {
	ID            int64             `json:"-"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Category      string            `json:"category,omitempty"`
	Subcategory   string            `json:"subcategory,omitempty"`
	State         string            `json:"state,omitempty"`
	District      string            `json:"district,omitempty"`
	ContentType   string            `json:"contentType,omitempty"`
	Status        string            `json:"status,omitempty"`
	FeaturedImage string            `json:"featuredImage,omitempty"`
	ThumbnailURL  string            `json:"thumbnailUrl,omitempty"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	Image         string            `json:"image,omitempty"`
	VideoPath     string            `json:"videoPath,omitempty"`
	Sports        []string          `json:"sports,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	IndexedAt     *time.Time        `json:"indexed_at,omitempty"`
	Dates         map[string]string `json:"-"`
}

type plainRecord NewsRecord

// UnmarshalJSON decodes the regular fields and then picks id and the known date keys
// out of the raw object.
func (r *NewsRecord) UnmarshalJSON(data []byte) error {
	var p plainRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["id"]; ok {
		p.ID = parseID(raw)
	}

	for _, name := range DateFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if v, ok := scalarText(raw); ok && v != "" {
			if p.Dates == nil {
				p.Dates = make(map[string]string)
			}
			p.Dates[name] = v
		}
	}

	*r = NewsRecord(p)
	return nil
}

// MarshalJSON writes id and dates back under their original keys.
func (r NewsRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(plainRecord(r))
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}

	if r.ID != 0 {
		fields["id"] = json.RawMessage(strconv.FormatInt(r.ID, 10))
	}
	for name, value := range r.Dates {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[name] = encoded
	}

	return json.Marshal(fields)
}

// DocumentID is the Elasticsearch key for the record, empty when the CMS sent no id.
func (r NewsRecord) DocumentID() string {
	if r.ID == 0 {
		return ""
	}
	return strconv.FormatInt(r.ID, 10)
}

// IsVideo reports whether the post is a video post.
func (r NewsRecord) IsVideo() bool {
	return strings.EqualFold(r.ContentType, "video") || r.VideoPath != ""
}

func parseID(raw json.RawMessage) int64 {
	text, ok := scalarText(raw)
	if !ok {
		return 0
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int64(f)
	}
	return 0
}

// scalarText returns the textual form of a JSON string or number.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}
