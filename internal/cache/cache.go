package cache

import (
	"context"

	"github.com/dgallion1/ubreader/internal/doctree"
)

// Cache stores transformed documents by content identity. Implementations
// hand out copies, so callers own what Get returns.
type Cache interface {
	Get(ctx context.Context, key string) (*doctree.TransformedDocument, bool, error)
	Set(ctx context.Context, key string, doc *doctree.TransformedDocument) error
	Delete(ctx context.Context, key string) error
}
