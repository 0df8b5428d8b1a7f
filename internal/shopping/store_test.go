package shopping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-shopper/internal/recipe"
)

const testKey = "nib-shopping-list"

// memKV is an in-memory KV that can be told to fail.
type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	sets    int
	getErr  error
	setErr  error
	inWrite bool
	overlap bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	if m.inWrite {
		m.overlap = true
	}
	m.inWrite = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inWrite = false
		m.mu.Unlock()
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) stored(t *testing.T, key string) []Item {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []Item
	require.NoError(t, json.Unmarshal([]byte(m.data[key]), &items))
	return items
}

func newTestStore(t *testing.T, kv KV) *Store {
	t.Helper()
	logger, _ := captureLogger()
	st, err := NewStore(context.Background(), kv, testKey, Options{Logger: logger})
	require.NoError(t, err)
	return st
}

func ingredientNames(items []Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Ingredient
	}
	return names
}

func TestStore_Scenario(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	added, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, 3, st.ItemCount())

	removed, err := st.Remove(ctx, "1-chicken")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 2, st.ItemCount())
	assert.Equal(t, []string{"Rice", "Salt"}, ingredientNames(st.SortedView()))
	assert.Len(t, kv.stored(t, testKey), 2)
}

func TestStore_StartsEmptyWithoutPersistedEntry(t *testing.T) {
	st := newTestStore(t, newMemKV())
	assert.Equal(t, 0, st.ItemCount())
	assert.Empty(t, st.SortedView())
}

func TestStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	first, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	second, err := st.Add(ctx, testMeal())
	require.NoError(t, err)

	assert.Equal(t, 3, first)
	assert.Equal(t, 0, second)
	assert.Equal(t, 3, st.ItemCount())
	assert.Equal(t, 1, kv.sets, "a no-op add should not rewrite the list")
}

func TestStore_DedupIsPerRecipe(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())

	a := recipe.Meal{ID: "10", Name: "A", Ingredients: []recipe.IngredientSlot{{Name: "Garlic", Measure: "2 cloves"}}}
	b := recipe.Meal{ID: "11", Name: "B", Ingredients: []recipe.IngredientSlot{{Name: "garlic", Measure: "1 clove"}}}

	n, err := st.Add(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = st.Add(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 2, st.ItemCount())
}

func TestStore_AddCountsOnlyNewItems(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())

	_, err := st.AddItems(ctx, []Item{{ID: "1-rice", RecipeID: "1", Ingredient: "Rice"}})
	require.NoError(t, err)

	added, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, st.ItemCount())
}

func TestStore_SortedView(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())

	m := recipe.Meal{ID: "s", Name: "Sort", Ingredients: []recipe.IngredientSlot{
		{Name: "Zucchini"}, {Name: "Apple"}, {Name: "Banana"},
	}}
	_, err := st.Add(ctx, m)
	require.NoError(t, err)

	assert.Equal(t, []string{"Apple", "Banana", "Zucchini"}, ingredientNames(st.SortedView()))
	assert.Equal(t, []string{"Zucchini", "Apple", "Banana"}, ingredientNames(st.Items()), "insertion order is kept internally")
}

func TestStore_SortedViewIsLocaleAware(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())

	_, err := st.AddItems(ctx, []Item{
		{ID: "1-zest", RecipeID: "1", Ingredient: "zest"},
		{ID: "1-eclair", RecipeID: "1", Ingredient: "Éclair"},
		{ID: "1-butter", RecipeID: "1", Ingredient: "butter"},
		{ID: "1-apple", RecipeID: "1", Ingredient: "Apple"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Apple", "butter", "Éclair", "zest"}, ingredientNames(st.SortedView()))
}

func TestStore_SortedViewIsStable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())

	_, err := st.AddItems(ctx, []Item{
		{ID: "2-salt", RecipeID: "2", Ingredient: "Salt", Measure: "second"},
		{ID: "1-oil", RecipeID: "1", Ingredient: "Oil"},
		{ID: "1-salt", RecipeID: "1", Ingredient: "Salt", Measure: "first"},
	})
	require.NoError(t, err)

	view := st.SortedView()
	require.Len(t, view, 3)
	assert.Equal(t, "2-salt", view[1].ID)
	assert.Equal(t, "1-salt", view[2].ID)
}

func TestStore_SortedViewDoesNotPersist(t *testing.T) {
	kv := newMemKV()
	st := newTestStore(t, kv)
	_ = st.SortedView()
	_ = st.ItemCount()
	assert.Equal(t, 0, kv.sets)
}

func TestStore_RemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)
	_, err := st.Add(ctx, testMeal())
	require.NoError(t, err)

	sets := kv.sets
	removed, err := st.Remove(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 3, st.ItemCount())
	assert.Equal(t, sets, kv.sets, "nothing removed, nothing written")
}

func TestStore_RemoveByRecipe(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	_, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	other := recipe.Meal{ID: "2", Name: "Other", Ingredients: []recipe.IngredientSlot{{Name: "Chicken"}, {Name: "Lemon"}}}
	_, err = st.Add(ctx, other)
	require.NoError(t, err)
	require.Equal(t, 5, st.ItemCount())

	removed, err := st.RemoveByRecipe(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, st.ItemCount())
	for _, item := range st.SortedView() {
		assert.Equal(t, "2", item.RecipeID)
	}
	assert.Len(t, kv.stored(t, testKey), 2)

	removed, err = st.RemoveByRecipe(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, st.ItemCount())
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	require.NoError(t, st.Clear(ctx), "clearing an empty list is fine")
	assert.Equal(t, "[]", kv.data[testKey])

	_, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	require.NoError(t, st.Clear(ctx))

	assert.Equal(t, 0, st.ItemCount())
	assert.Empty(t, st.SortedView())
	assert.Equal(t, "[]", kv.data[testKey])
}

func TestStore_Recipes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())

	_, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	_, err = st.Add(ctx, recipe.Meal{ID: "2", Name: "Other", Ingredients: []recipe.IngredientSlot{{Name: "Lemon"}}})
	require.NoError(t, err)

	assert.Equal(t, []RecipeSummary{
		{RecipeID: "1", RecipeName: "Test Meal", Items: 3},
		{RecipeID: "2", RecipeName: "Other", Items: 1},
	}, st.Recipes())
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	_, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	_, err = st.Add(ctx, recipe.Meal{ID: "2", Name: "Other", Ingredients: []recipe.IngredientSlot{{Name: "Lemon", Measure: "1"}}})
	require.NoError(t, err)

	reloaded := newTestStore(t, kv)
	assert.ElementsMatch(t, st.SortedView(), reloaded.SortedView())
	assert.Equal(t, st.ItemCount(), reloaded.ItemCount())
}

func TestStore_MalformedPersistedState(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[testKey] = "{not json"

	logger, buf := captureLogger()
	st, err := NewStore(ctx, kv, testKey, Options{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, 0, st.ItemCount())
	assert.Contains(t, buf.String(), "failed to parse persisted shopping list")
	assert.Equal(t, "{not json", kv.data[testKey], "malformed entry stays until the next mutation")

	_, err = st.Add(ctx, testMeal())
	require.NoError(t, err)
	assert.Len(t, kv.stored(t, testKey), 3)
}

func TestStore_ValidatorRejectsState(t *testing.T) {
	kv := newMemKV()
	kv.data[testKey] = `[{"id":"1-salt","mealId":"1","mealName":"M","ingredient":"Salt","measure":""}]`

	logger, buf := captureLogger()
	st, err := NewStore(context.Background(), kv, testKey, Options{
		Logger:   logger,
		Validate: func([]byte) error { return errors.New("schema mismatch") },
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.ItemCount())
	assert.Contains(t, buf.String(), "schema mismatch")
}

func TestStore_LoadsLegacyFormat(t *testing.T) {
	kv := newMemKV()
	kv.data[testKey] = `[{"id":"52772-soy sauce","mealId":"52772","mealName":"Teriyaki","ingredient":"soy sauce","measure":"3/4 cup"}]`

	st := newTestStore(t, kv)
	require.Equal(t, 1, st.ItemCount())
	assert.Equal(t, Item{
		ID:         "52772-soy sauce",
		RecipeID:   "52772",
		RecipeName: "Teriyaki",
		Ingredient: "soy sauce",
		Measure:    "3/4 cup",
	}, st.Items()[0])
}

func TestStore_ReadFailure(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk unplugged")

	_, err := NewStore(context.Background(), kv, testKey, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk unplugged")
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)
	kv.setErr = errors.New("quota exceeded")

	added, err := st.Add(ctx, testMeal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 3, added)
	assert.Equal(t, 3, st.ItemCount())

	removed, err := st.Remove(ctx, "1-rice")
	require.Error(t, err)
	assert.True(t, removed)
	assert.Equal(t, 2, st.ItemCount())

	err = st.Clear(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, st.ItemCount())
	assert.Equal(t, 3, kv.sets, "each mutation makes exactly one write attempt")
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, newMemKV())
	_, err := st.Add(ctx, testMeal())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.Add(ctx, testMeal())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = st.Remove(ctx, "1-rice")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = st.RemoveByRecipe(ctx, "1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, st.Clear(ctx), ErrClosed)
	assert.Equal(t, 3, st.ItemCount())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	const recipes = 20
	const callers = 4

	var wg sync.WaitGroup
	counts := make(chan int, recipes*callers)
	for c := 0; c < callers; c++ {
		for r := 0; r < recipes; r++ {
			wg.Add(1)
			go func(r int) {
				defer wg.Done()
				n, err := st.Add(ctx, mealWithSlots(fmt.Sprintf("r%d", r), 5))
				assert.NoError(t, err)
				counts <- n
			}(r)
		}
	}
	wg.Wait()
	close(counts)

	total := 0
	for n := range counts {
		total += n
	}

	assert.Equal(t, recipes*5, total, "every item is counted exactly once")
	assert.Equal(t, recipes*5, st.ItemCount())
	assert.Len(t, kv.stored(t, testKey), recipes*5, "no lost updates in the durable copy")
	assert.False(t, kv.overlap, "writes to one key must not interleave")
}

func TestStore_PersistsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	st := newTestStore(t, kv)

	_, err := st.Add(ctx, recipe.Meal{ID: "o", Ingredients: []recipe.IngredientSlot{{Name: "Zucchini"}, {Name: "Apple"}}})
	require.NoError(t, err)

	stored := kv.stored(t, testKey)
	require.Len(t, stored, 2)
	assert.True(t, strings.HasSuffix(stored[0].ID, "zucchini"))
}
