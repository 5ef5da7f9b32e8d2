package doctree

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// PublicationType classifies the reader content a document belongs to.
type PublicationType string

const (
	PublicationScientific  PublicationType = "scientific"
	PublicationLectionary  PublicationType = "lectionary"
	PublicationUBGems      PublicationType = "ubgems"
	PublicationUBCatechism PublicationType = "ubcatechism"
)

// ParsePublicationType validates s. The empty string is accepted and means
// "no publication type".
func ParsePublicationType(s string) (PublicationType, error) {
	switch p := PublicationType(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PublicationScientific, PublicationLectionary, PublicationUBGems, PublicationUBCatechism:
		return p, nil
	}
	return "", fmt.Errorf("unknown publication type: %q", s)
}

// Author is an ordered list of author names. It encodes as a plain JSON
// string when there is exactly one name.
type Author []string

func (a Author) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a *Author) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*a = nil
		} else {
			*a = Author{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	*a = many
	return nil
}

// Metadata holds the recognized document metadata. Keys the reader does not
// know about are kept in Extra.
type Metadata struct {
	Title          string         `json:"title,omitempty"`
	Subtitle       string         `json:"subtitle,omitempty"`
	Author         Author         `json:"author,omitempty"`
	Date           string         `json:"date,omitempty"` // YYYY-MM-DD
	Categories     []string       `json:"categories,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	RelatedContent []string       `json:"relatedContent,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// IsZero reports whether no metadata is set.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Subtitle == "" && len(m.Author) == 0 && m.Date == "" &&
		len(m.Categories) == 0 && len(m.Tags) == 0 && len(m.RelatedContent) == 0 && len(m.Extra) == 0
}

// TransformedDocument is the output of the transformation pipeline.
type TransformedDocument struct {
	Content         *Node           `json:"content"`
	Metadata        Metadata        `json:"metadata"`
	PublicationType PublicationType `json:"publicationType,omitempty"`
	HTML            string          `json:"html,omitempty"`
	Text            string          `json:"text,omitempty"`
}

// Draft is a document between pipeline stages. Fields holds raw metadata
// values that have not been coerced yet.
type Draft struct {
	Content *Node
	HTML    string
	Text    string
	Fields  map[string]any
}

// Clone returns a copy of d with its own tree and field map.
func (d Draft) Clone() Draft {
	out := Draft{
		Content: d.Content.Clone(),
		HTML:    d.HTML,
		Text:    d.Text,
		Fields:  make(map[string]any, len(d.Fields)),
	}
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return out
}

// TransformOptions configures a single transformation.
type TransformOptions struct {
	ExtractMetadata bool            `json:"extractMetadata"`
	Sanitize        bool            `json:"sanitize"`
	PublicationType PublicationType `json:"publicationType,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// DefaultOptions extracts metadata and sanitizes.
func DefaultOptions() TransformOptions {
	return TransformOptions{
		ExtractMetadata: true,
		Sanitize:        true,
	}
}

// Clone returns a deep copy of m. Extra values are copied shallowly.
func (m Metadata) Clone() Metadata {
	out := m
	out.Author = slices.Clone(m.Author)
	out.Categories = slices.Clone(m.Categories)
	out.Tags = slices.Clone(m.Tags)
	out.RelatedContent = slices.Clone(m.RelatedContent)
	out.Extra = maps.Clone(m.Extra)
	return out
}

// Clone returns a deep copy of d.
func (d *TransformedDocument) Clone() *TransformedDocument {
	if d == nil {
		return nil
	}
	out := *d
	out.Content = d.Content.Clone()
	out.Metadata = d.Metadata.Clone()
	return &out
}
