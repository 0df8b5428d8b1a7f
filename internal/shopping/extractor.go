package shopping

import (
	"log/slog"
	"strings"

	"meal-shopper/internal/recipe"
)

// ExtractIngredients turns the positional ingredient slots of m into list items.
//
// The scan stops at the first position whose ingredient is blank, even when
// later positions hold values, and never reads past recipe.MaxIngredientSlots.
// truncated reports that the ceiling cut off a further non-blank ingredient.
//
// Two positions naming the same ingredient share an ID; the later position
// replaces the earlier one in place.
func ExtractIngredients(m recipe.Meal) (items []Item, truncated bool) {
	items = make([]Item, 0, min(len(m.Ingredients), recipe.MaxIngredientSlots))
	seen := make(map[string]int)

	for i := 1; i <= recipe.MaxIngredientSlots; i++ {
		slot, ok := m.Slot(i)
		name := strings.TrimSpace(slot.Name)
		if !ok || name == "" {
			return items, false
		}

		item := Item{
			ID:         ItemID(m.ID, name),
			RecipeID:   m.ID,
			RecipeName: m.Name,
			Ingredient: name,
			Measure:    strings.TrimSpace(slot.Measure),
		}
		if idx, dup := seen[item.ID]; dup {
			items[idx] = item
			continue
		}
		seen[item.ID] = len(items)
		items = append(items, item)
	}

	next, ok := m.Slot(recipe.MaxIngredientSlots + 1)
	return items, ok && strings.TrimSpace(next.Name) != ""
}

// Extractor runs ExtractIngredients and reports truncated records.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger falls back to slog.Default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns the normalized ingredients of m.
func (e *Extractor) Extract(m recipe.Meal) []Item {
	items, truncated := ExtractIngredients(m)
	if truncated {
		e.logger.Warn("unexpectedly high ingredient count",
			"recipe_id", m.ID,
			"recipe", m.Name,
			"limit", recipe.MaxIngredientSlots,
		)
	}
	return items
}
