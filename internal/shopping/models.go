package shopping

import "strings"

// Item is one ingredient line on the shopping list.
// The JSON names match the list format already persisted by the web client.
type Item struct {
	ID         string `json:"id"`
	RecipeID   string `json:"mealId"`
	RecipeName string `json:"mealName"`
	Ingredient string `json:"ingredient"`
	Measure    string `json:"measure"`
}

// RecipeSummary groups the list by source recipe.
type RecipeSummary struct {
	RecipeID   string `json:"mealId"`
	RecipeName string `json:"mealName"`
	Items      int    `json:"items"`
}

// ItemID builds the dedup key of an ingredient within a recipe.
// Case and surrounding whitespace of the ingredient name do not matter.
func ItemID(recipeID, ingredient string) string {
	return recipeID + "-" + NormalizeName(ingredient)
}

// NormalizeName lowercases and trims an ingredient name.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
