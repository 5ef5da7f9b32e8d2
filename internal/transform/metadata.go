package transform

import (
	"fmt"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/spf13/cast"
)

const dateLayout = "2006-01-02"

// CoerceMetadata converts loosely typed fields into Metadata. Known keys are
// coerced to their field types; values that cannot be coerced are dropped.
// Every other key lands in Extra.
func CoerceMetadata(fields map[string]any) doctree.Metadata {
	var m doctree.Metadata
	for key, v := range fields {
		if v == nil {
			continue
		}
		switch key {
		case "title":
			m.Title = coerceString(v)
		case "subtitle":
			m.Subtitle = coerceString(v)
		case "author":
			m.Author = coerceAuthor(v)
		case "date":
			m.Date = coerceDate(v)
		case "categories":
			m.Categories = coerceList(v)
		case "tags":
			m.Tags = coerceList(v)
		case "relatedContent":
			m.RelatedContent = coerceList(v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[key] = v
		}
	}
	return m
}

func coerceString(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}

// coerceAuthor keeps a single string as one name, even when it contains
// commas. Lists are stringified element by element.
func coerceAuthor(v any) doctree.Author {
	var names []string
	switch a := v.(type) {
	case string:
		names = []string{a}
	case doctree.Author:
		names = a
	default:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			names = []string{coerceString(v)}
		} else {
			names = list
		}
	}
	return doctree.Author(compact(names))
}

func coerceDate(v any) string {
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// coerceList splits comma-separated strings; slices are stringified element
// by element.
func coerceList(v any) []string {
	if s, ok := v.(string); ok {
		return compact(strings.Split(s, ","))
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return compact([]string{coerceString(v)})
	}
	return compact(list)
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
