package shopping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"meal-shopper/internal/recipe"
)

// ErrClosed is returned by mutations on a Store after Close.
var ErrClosed = errors.New("shopping list store is closed")

// KV is the durable string store the list is persisted to.
// Get reports ok=false when nothing is stored under key.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Options tunes a Store. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Validate, when set, checks the persisted document before it is decoded.
	Validate func(data []byte) error
}

// Store owns the shopping list persisted under a single key.
//
// Every operation holds the store lock for its whole duration, including the
// write to the durable store, so read-modify-write cycles never interleave.
type Store struct {
	mu        sync.Mutex
	kv        KV
	key       string
	logger    *slog.Logger
	extractor *Extractor
	collator  *collate.Collator
	validate  func(data []byte) error

	// raw is the document last read from or written to kv.
	raw    string
	order  []string
	items  map[string]Item
	closed bool
}

// NewStore loads the list stored under key. A missing entry yields an empty
// list. An entry that cannot be decoded is logged and replaced by an empty
// list in memory; it is left untouched in kv until the next mutation.
func NewStore(ctx context.Context, kv KV, key string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		kv:        kv,
		key:       key,
		logger:    logger,
		extractor: NewExtractor(logger),
		collator:  collate.New(language.Und),
		validate:  opts.Validate,
		items:     make(map[string]Item),
	}

	raw, _, err := kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read shopping list %q: %w", key, err)
	}
	s.loadLocked(raw)
	return s, nil
}

// Refresh reloads the list when the document in kv no longer matches the one
// this store last read or wrote, which happens when another process shares
// the backend.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	raw, _, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to read shopping list %q: %w", s.key, err)
	}
	if raw == s.raw {
		return nil
	}
	s.logger.Debug("shopping list changed in storage, reloading", "key", s.key)
	s.loadLocked(raw)
	return nil
}

// loadLocked replaces the in-memory list with the decoded raw document.
// A document that cannot be decoded is logged and yields an empty list.
func (s *Store) loadLocked(raw string) {
	s.raw = raw
	s.order = nil
	s.items = make(map[string]Item)
	if raw == "" {
		return
	}

	if s.validate != nil {
		if err := s.validate([]byte(raw)); err != nil {
			s.logger.Error("failed to parse persisted shopping list", "key", s.key, "error", err)
			return
		}
	}

	var stored []Item
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Error("failed to parse persisted shopping list", "key", s.key, "error", err)
		return
	}
	for _, item := range stored {
		s.insertLocked(item)
	}
}

// Key returns the durable key the store persists to.
func (s *Store) Key() string {
	return s.key
}

// Add extracts the ingredients of m and inserts the ones not already listed.
// It returns how many items were inserted.
func (s *Store) Add(ctx context.Context, m recipe.Meal) (int, error) {
	return s.AddItems(ctx, s.extractor.Extract(m))
}

// AddItems inserts every item whose ID is not on the list yet, as one batch.
// The returned count is computed against the list as it was when the batch
// started. A persistence error leaves the inserted items in memory.
func (s *Store) AddItems(ctx context.Context, items []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	added := 0
	for _, item := range items {
		if s.insertLocked(item) {
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.persistLocked(ctx)
}

// Remove deletes the item with the given ID and reports whether it was on
// the list. Unknown IDs are not an error and cause no write.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if _, ok := s.items[id]; !ok {
		return false, nil
	}

	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(existing string) bool { return existing == id })
	return true, s.persistLocked(ctx)
}

// RemoveByRecipe deletes every item that came from recipeID and returns how
// many were removed.
func (s *Store) RemoveByRecipe(ctx context.Context, recipeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	removed := 0
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		if s.items[id].RecipeID != recipeID {
			return false
		}
		delete(s.items, id)
		removed++
		return true
	})
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked(ctx)
}

// Clear empties the list and persists the empty list.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.order = nil
	s.items = make(map[string]Item)
	return s.persistLocked(ctx)
}

// SortedView returns the items ordered by ingredient name using locale-aware
// collation. Items with equal names keep their insertion order.
func (s *Store) SortedView() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.snapshotLocked()
	slices.SortStableFunc(view, func(a, b Item) int {
		return s.collator.CompareString(a.Ingredient, b.Ingredient)
	})
	return view
}

// Items returns the items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ItemCount returns the number of items on the list.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Recipes lists the recipes contributing to the list, in the order they were
// first added.
func (s *Store) Recipes() []RecipeSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []RecipeSummary
	index := make(map[string]int)
	for _, id := range s.order {
		item := s.items[id]
		if i, ok := index[item.RecipeID]; ok {
			out[i].Items++
			continue
		}
		index[item.RecipeID] = len(out)
		out = append(out, RecipeSummary{RecipeID: item.RecipeID, RecipeName: item.RecipeName, Items: 1})
	}
	return out
}

// Close stops the store from accepting further mutations. Reads keep working
// on the last state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) insertLocked(item Item) bool {
	if _, exists := s.items[item.ID]; exists {
		return false
	}
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return true
}

func (s *Store) snapshotLocked() []Item {
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// persistLocked writes the full list. The in-memory state is authoritative;
// a failed write is reported once and not retried.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Warn("failed to persist shopping list", "key", s.key, "error", err)
		return fmt.Errorf("failed to persist shopping list %q: %w", s.key, err)
	}
	s.raw = string(data)
	return nil
}
