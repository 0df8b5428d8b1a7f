package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"meal-shopper/internal/recipe"
	"meal-shopper/internal/shopping"
)

func TestList(t *testing.T) {
	out := List([]shopping.Item{
		{ID: "1-rice", RecipeID: "1", RecipeName: "Fried Rice", Ingredient: "Rice", Measure: "2 cups"},
		{ID: "1-salt", RecipeID: "1", RecipeName: "Fried Rice", Ingredient: "Salt"},
	}, true)

	assert.Contains(t, out, "Shopping list (2 items)")
	assert.Contains(t, out, "Rice")
	assert.Contains(t, out, "2 cups")
	assert.Contains(t, out, "(Fried Rice)")
	assert.Contains(t, out, "[1-salt]")
	assert.Less(t, strings.Index(out, "Rice"), strings.Index(out, "Salt"), "order is preserved")
}

func TestList_Singular(t *testing.T) {
	out := List([]shopping.Item{{ID: "1-salt", Ingredient: "Salt"}}, false)
	assert.Contains(t, out, "(1 item)")
	assert.NotContains(t, out, "[1-salt]")
}

func TestList_Empty(t *testing.T) {
	assert.Contains(t, List(nil, false), "Your shopping list is empty.")
}

func TestRecipes(t *testing.T) {
	assert.Empty(t, Recipes(nil))
	out := Recipes([]shopping.RecipeSummary{{RecipeID: "52771", RecipeName: "Arrabiata", Items: 3}})
	assert.Contains(t, out, "Arrabiata")
	assert.Contains(t, out, "[52771, 3 items]")
}

func TestMeals(t *testing.T) {
	out := Meals([]recipe.Meal{{ID: "52771", Name: "Arrabiata", Category: "Vegetarian"}})
	assert.Contains(t, out, "52771")
	assert.Contains(t, out, "(Vegetarian)")
	assert.Contains(t, Meals(nil), "No recipes found.")
}

func TestMeal(t *testing.T) {
	out := Meal(recipe.Meal{
		ID:   "1",
		Name: "Toast",
		Area: "British",
		Ingredients: []recipe.IngredientSlot{
			{Name: "Bread", Measure: "2 slices"},
			{Name: ""},
			{Name: "Jam"},
		},
	})
	assert.Contains(t, out, "Toast")
	assert.Contains(t, out, "British")
	assert.Contains(t, out, "Bread")
	assert.NotContains(t, out, "Jam", "listing stops at the first blank slot")
}
