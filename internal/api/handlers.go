package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meal-shopper/internal/app"
	"meal-shopper/internal/clipper"
	"meal-shopper/internal/logging"
	"meal-shopper/internal/mealdb"
	"meal-shopper/internal/recipe"
	"meal-shopper/internal/shopping"
)

// NewRouter wires up all routes with the provided App.
func NewRouter(a *app.App) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(a))

	r.Get("/recipes", handleSearch(a))
	r.Get("/recipes/random", handleRandom(a))
	r.Get("/recipes/{id}", handleGetRecipe(a))

	r.Get("/list", handleGetList(a))
	r.Delete("/list", handleClearList(a))
	r.Post("/list/recipes/{id}", handleAddRecipe(a))
	r.Delete("/list/recipes/{id}", handleRemoveRecipe(a))
	r.Post("/list/import", handleImport(a))
	r.Delete("/list/items/{id}", handleRemoveItem(a))

	return r
}

func handleHealth(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, a.Health())
	}
}

// --- recipes ---

func handleSearch(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meals, err := a.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			if errors.Is(err, app.ErrEmptyQuery) {
				jsonError(w, "q is required", http.StatusBadRequest)
				return
			}
			jsonError(w, "failed to search recipes", http.StatusBadGateway, err)
			return
		}
		if meals == nil {
			meals = []recipe.Meal{}
		}
		jsonOK(w, meals)
	}
}

func handleRandom(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meal, err := a.RandomRecipe(r.Context())
		if err != nil {
			jsonError(w, "failed to fetch recipe", http.StatusBadGateway, err)
			return
		}
		jsonOK(w, meal)
	}
}

func handleGetRecipe(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meal, err := a.Recipe(r.Context(), pathParam(r, "id"))
		if err != nil {
			if errors.Is(err, mealdb.ErrNotFound) {
				jsonError(w, "recipe not found", http.StatusNotFound)
				return
			}
			jsonError(w, "failed to fetch recipe", http.StatusBadGateway, err)
			return
		}
		jsonOK(w, meal)
	}
}

// --- list ---

type listResponse struct {
	Key     string                   `json:"key"`
	Count   int                      `json:"count"`
	Items   []shopping.Item          `json:"items"`
	Recipes []shopping.RecipeSummary `json:"recipes"`
}

func handleGetList(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := openList(w, r, a)
		if !ok {
			return
		}
		items := st.SortedView()
		recipes := st.Recipes()
		if recipes == nil {
			recipes = []shopping.RecipeSummary{}
		}
		jsonOK(w, listResponse{Key: st.Key(), Count: len(items), Items: items, Recipes: recipes})
	}
}

func handleAddRecipe(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := a.AddRecipe(r.Context(), listName(r), pathParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, mealdb.ErrNotFound):
				jsonError(w, "recipe not found", http.StatusNotFound)
			case errors.Is(err, shopping.ErrClosed):
				jsonError(w, "shopping list is closed", http.StatusServiceUnavailable)
			case res.RecipeID != "":
				jsonError(w, "failed to save shopping list", http.StatusInternalServerError, err)
			default:
				jsonError(w, "failed to fetch recipe", http.StatusBadGateway, err)
			}
			return
		}
		jsonOK(w, res)
	}
}

type importRequest struct {
	URL string `json:"url"`
}

func handleImport(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			jsonError(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
			return
		}

		res, err := a.ImportPage(r.Context(), listName(r), req.URL)
		if err != nil {
			switch {
			case errors.Is(err, clipper.ErrNoIngredients):
				jsonError(w, "no ingredients found on page", http.StatusUnprocessableEntity)
			case res.RecipeID != "":
				jsonError(w, "failed to save shopping list", http.StatusInternalServerError, err)
			default:
				jsonError(w, "failed to import page", http.StatusBadGateway, err)
			}
			return
		}
		jsonOK(w, res)
	}
}

func handleRemoveItem(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := openList(w, r, a)
		if !ok {
			return
		}
		removed, err := st.Remove(r.Context(), pathParam(r, "id"))
		if err != nil {
			jsonError(w, "failed to save shopping list", http.StatusInternalServerError, err)
			return
		}
		jsonOK(w, map[string]any{"removed": removed, "count": st.ItemCount()})
	}
}

func handleRemoveRecipe(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := openList(w, r, a)
		if !ok {
			return
		}
		removed, err := st.RemoveByRecipe(r.Context(), pathParam(r, "id"))
		if err != nil {
			jsonError(w, "failed to save shopping list", http.StatusInternalServerError, err)
			return
		}
		jsonOK(w, map[string]int{"removed": removed, "count": st.ItemCount()})
	}
}

func handleClearList(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := openList(w, r, a)
		if !ok {
			return
		}
		if err := st.Clear(r.Context()); err != nil {
			jsonError(w, "failed to save shopping list", http.StatusInternalServerError, err)
			return
		}
		jsonOK(w, map[string]int{"count": 0})
	}
}

// --- helpers ---

func openList(w http.ResponseWriter, r *http.Request, a *app.App) (*shopping.Store, bool) {
	st, err := a.List(r.Context(), listName(r))
	if err != nil {
		jsonError(w, "failed to open shopping list", http.StatusInternalServerError, err)
		return nil, false
	}
	return st, true
}

// listName selects a named list through ?list=; absent means the default list.
func listName(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("list"))
}

// pathParam returns a decoded URL parameter. Item ids contain spaces and may
// contain escaped slashes.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonError(w http.ResponseWriter, msg string, status int, errs ...error) {
	if status >= 500 && len(errs) > 0 {
		slog.Error(msg, "status", status, "error", errs[0])
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
