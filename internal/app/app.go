package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"meal-shopper/internal/clipper"
	"meal-shopper/internal/config"
	"meal-shopper/internal/health"
	"meal-shopper/internal/mealdb"
	"meal-shopper/internal/recipe"
	"meal-shopper/internal/schemas"
	"meal-shopper/internal/shopping"
	"meal-shopper/internal/storage"
)

// ErrEmptyQuery is returned when a search is attempted without a query.
var ErrEmptyQuery = errors.New("search query is empty")

// lookupConcurrency bounds parallel recipe lookups in AddRecipes.
const lookupConcurrency = 4

// PageClipper turns a recipe web page into a recipe record.
type PageClipper interface {
	Clip(ctx context.Context, pageURL string) (recipe.Meal, error)
}

// AddResult reports the effect of adding one recipe to a list.
type AddResult struct {
	RecipeID   string `json:"mealId"`
	RecipeName string `json:"mealName"`
	Added      int    `json:"added"`
	Count      int    `json:"count"`
}

// App holds the application's dependencies.
type App struct {
	meals   mealdb.Client
	clipper PageClipper
	lists   *shopping.Registry
	cfg     *config.Config
	closers []func() error
}

// NewApp creates a new App instance.
func NewApp(meals mealdb.Client, clip PageClipper, lists *shopping.Registry, cfg *config.Config) *App {
	return &App{
		meals:   meals,
		clipper: clip,
		lists:   lists,
		cfg:     cfg,
	}
}

// Open builds an App from configuration: the storage backend it selects, a
// list registry validating persisted state, and the recipe sources.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	lists := shopping.NewRegistry(backend, shopping.Options{
		Logger:   logger,
		Validate: schemas.ValidateShoppingList,
	})
	a := NewApp(mealdb.NewClient(cfg), clipper.NewClipper(nil), lists, cfg)
	a.closers = append(a.closers, backend.Close)
	return a, nil
}

// Close closes the list stores, then the storage backend.
func (a *App) Close() error {
	errs := []error{a.lists.Close()}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Health returns a runtime snapshot, including the size of on-disk list storage.
func (a *App) Health() health.Snapshot {
	var dataPath string
	switch a.cfg.StorageBackend {
	case "file":
		dataPath = a.cfg.StoragePath
	case "sqlite":
		dataPath = filepath.Dir(a.cfg.DatabasePath)
	}
	return health.Collect(a.cfg.StorageBackend, dataPath)
}

// ListKey maps a list name to its durable key. The empty name is the default list.
func (a *App) ListKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return a.cfg.ShoppingListKey
	}
	return a.cfg.ShoppingListKey + ":" + name
}

// List returns the store behind the named list.
func (a *App) List(ctx context.Context, name string) (*shopping.Store, error) {
	st, err := a.lists.Get(ctx, a.ListKey(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open shopping list: %w", err)
	}
	return st, nil
}

// Search finds recipes by name.
func (a *App) Search(ctx context.Context, query string) ([]recipe.Meal, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	meals, err := a.meals.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	return meals, nil
}

// Recipe fetches one recipe by id.
func (a *App) Recipe(ctx context.Context, id string) (*recipe.Meal, error) {
	meal, err := a.meals.Lookup(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("failed to look up recipe: %w", err)
	}
	return meal, nil
}

// RandomRecipe fetches a random recipe.
func (a *App) RandomRecipe(ctx context.Context) (*recipe.Meal, error) {
	meal, err := a.meals.Random(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch random recipe: %w", err)
	}
	return meal, nil
}

// AddRecipe looks up a recipe and adds its ingredients to the named list.
// A persistence failure is returned together with the result, since the
// items are on the list in memory either way.
func (a *App) AddRecipe(ctx context.Context, list, id string) (AddResult, error) {
	meal, err := a.Recipe(ctx, id)
	if err != nil {
		return AddResult{}, err
	}
	return a.AddMeal(ctx, list, *meal)
}

// AddRecipes looks up several recipes concurrently and adds them to the
// named list in the order given. Nothing is added if any lookup fails.
func (a *App) AddRecipes(ctx context.Context, list string, ids []string) ([]AddResult, error) {
	meals := make([]*recipe.Meal, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			meal, err := a.Recipe(gctx, id)
			if err != nil {
				return fmt.Errorf("recipe %s: %w", id, err)
			}
			meals[i] = meal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]AddResult, 0, len(meals))
	for _, meal := range meals {
		res, err := a.AddMeal(ctx, list, *meal)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// ImportPage clips a recipe web page and adds its ingredients to the named list.
func (a *App) ImportPage(ctx context.Context, list, pageURL string) (AddResult, error) {
	meal, err := a.clipper.Clip(ctx, pageURL)
	if err != nil {
		return AddResult{}, fmt.Errorf("failed to import page: %w", err)
	}
	return a.AddMeal(ctx, list, meal)
}

// AddMeal adds the ingredients of an already fetched recipe to the named list.
func (a *App) AddMeal(ctx context.Context, list string, meal recipe.Meal) (AddResult, error) {
	st, err := a.List(ctx, list)
	if err != nil {
		return AddResult{}, err
	}

	added, err := st.Add(ctx, meal)
	res := AddResult{
		RecipeID:   meal.ID,
		RecipeName: meal.Name,
		Added:      added,
		Count:      st.ItemCount(),
	}
	if err != nil {
		return res, fmt.Errorf("failed to save shopping list: %w", err)
	}
	slog.Debug("recipe added to shopping list", "list", st.Key(), "recipe", meal.ID, "added", added)
	return res, nil
}
