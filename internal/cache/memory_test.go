package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dgallion1/ubreader/internal/doctree"
)

func doc(title string) *doctree.TransformedDocument {
	root := doctree.NewRoot()
	root.Children = append(root.Children, doctree.Text(title))
	return &doctree.TransformedDocument{Content: root, Metadata: doctree.Metadata{Title: title}}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, 0)

	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := m.Set(ctx, "a", doc("A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := m.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Metadata.Title != "A" {
		t.Errorf("expected title A, got %q", got.Metadata.Title)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 0)
	original := doc("A")
	m.Set(ctx, "a", original)

	original.Content.Children[0].Value = "mutated"
	got, _, _ := m.Get(ctx, "a")
	got.Metadata.Title = "also mutated"

	again, _, _ := m.Get(ctx, "a")
	if again.Content.Children[0].Value != "A" || again.Metadata.Title != "A" {
		t.Errorf("expected cached copy to be isolated, got %+v", again)
	}
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Now()}
	m := NewMemory(time.Minute, 0)
	m.now = c.now

	m.Set(ctx, "a", doc("A"))
	c.t = c.t.Add(30 * time.Second)
	m.Set(ctx, "b", doc("B"))

	c.t = c.t.Add(45 * time.Second)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("expected a to have expired")
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Error("expected b to still be cached")
	}

	c.t = c.t.Add(time.Minute)
	m.Cleanup()
	if m.Len() != 0 {
		t.Errorf("expected cleanup to empty the cache, got %d entries", m.Len())
	}
}

func TestMemory_CapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Now()}
	m := NewMemory(0, 3)
	m.now = c.now

	for i := 0; i < 3; i++ {
		c.t = c.t.Add(time.Second)
		m.Set(ctx, fmt.Sprintf("k%d", i), doc(fmt.Sprint(i)))
	}
	// Overwriting an existing key does not evict.
	c.t = c.t.Add(time.Second)
	m.Set(ctx, "k2", doc("2b"))
	if m.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", m.Len())
	}

	c.t = c.t.Add(time.Second)
	m.Set(ctx, "k3", doc("3"))
	if m.Len() != 3 {
		t.Fatalf("expected capacity to hold at 3, got %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "k0"); ok {
		t.Error("expected oldest entry k0 to be evicted")
	}
	for _, k := range []string{"k1", "k2", "k3"} {
		if _, ok, _ := m.Get(ctx, k); !ok {
			t.Errorf("expected %s to be cached", k)
		}
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("abc"); got != "ubreader:doc:abc" {
		t.Errorf("expected prefixed key, got %q", got)
	}
}

var _ Cache = (*Memory)(nil)
var _ Cache = (*Redis)(nil)
