package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"meal-shopper/internal/config"
	"meal-shopper/internal/recipe"
)

// ErrNotFound is returned when a lookup matches no meal.
var ErrNotFound = errors.New("meal not found")

// Client is an interface for a TheMealDB API client.
type Client interface {
	Search(ctx context.Context, query string) ([]recipe.Meal, error)
	Lookup(ctx context.Context, id string) (*recipe.Meal, error)
	Random(ctx context.Context) (*recipe.Meal, error)
}

// mealDBClient is the concrete implementation of the TheMealDB client.
type mealDBClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new TheMealDB API client.
func NewClient(cfg *config.Config) Client {
	return &mealDBClient{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    strings.TrimRight(cfg.MealDBBaseURL, "/"),
	}
}

// Search finds meals whose name matches query. No match yields an empty slice.
func (c *mealDBClient) Search(ctx context.Context, query string) ([]recipe.Meal, error) {
	resp, err := c.get(ctx, "search.php", url.Values{"s": {query}})
	if err != nil {
		return nil, err
	}
	if resp.Meals == nil {
		return []recipe.Meal{}, nil
	}
	return resp.Meals, nil
}

// Lookup fetches the full record of a single meal.
func (c *mealDBClient) Lookup(ctx context.Context, id string) (*recipe.Meal, error) {
	resp, err := c.get(ctx, "lookup.php", url.Values{"i": {id}})
	if err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &resp.Meals[0], nil
}

// Random fetches one random meal.
func (c *mealDBClient) Random(ctx context.Context) (*recipe.Meal, error) {
	resp, err := c.get(ctx, "random.php", nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Meals[0], nil
}

func (c *mealDBClient) get(ctx context.Context, endpoint string, params url.Values) (*recipe.MealsResponse, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch meals: status %d", resp.StatusCode)
	}

	var mealsResponse recipe.MealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&mealsResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &mealsResponse, nil
}
