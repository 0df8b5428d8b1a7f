// Package render formats recipes and shopping lists for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"meal-shopper/internal/recipe"
	"meal-shopper/internal/shopping"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	ingredientStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	measureStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")) // Sky Blue
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	idStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// List renders the shopping list in the order given, one ingredient per line.
// withIDs appends each item id so it can be passed to "remove".
func List(items []shopping.Item, withIDs bool) string {
	if len(items) == 0 {
		return dimStyle.Render("Your shopping list is empty.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Shopping list (%d %s)", len(items), plural(len(items), "item", "items"))))
	sb.WriteString("\n")
	for _, it := range items {
		sb.WriteString("• ")
		sb.WriteString(ingredientStyle.Render(it.Ingredient))
		if it.Measure != "" {
			sb.WriteString(" ")
			sb.WriteString(measureStyle.Render(it.Measure))
		}
		if it.RecipeName != "" {
			sb.WriteString(" ")
			sb.WriteString(dimStyle.Render("(" + it.RecipeName + ")"))
		}
		if withIDs {
			sb.WriteString(" ")
			sb.WriteString(idStyle.Render("[" + it.ID + "]"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Recipes renders the recipes contributing to a list.
func Recipes(recipes []shopping.RecipeSummary) string {
	if len(recipes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(dimStyle.Render("From recipes:"))
	sb.WriteString("\n")
	for _, r := range recipes {
		fmt.Fprintf(&sb, "  %s %s\n", r.RecipeName, dimStyle.Render(fmt.Sprintf("[%s, %d %s]", r.RecipeID, r.Items, plural(r.Items, "item", "items"))))
	}
	return sb.String()
}

// Meals renders search results as "id  name (category, area)".
func Meals(meals []recipe.Meal) string {
	if len(meals) == 0 {
		return dimStyle.Render("No recipes found.") + "\n"
	}
	var sb strings.Builder
	for _, m := range meals {
		fmt.Fprintf(&sb, "%s  %s", idStyle.Render(m.ID), ingredientStyle.Render(m.Name))
		if tags := joinNonEmpty(", ", m.Category, m.Area); tags != "" {
			sb.WriteString(" ")
			sb.WriteString(dimStyle.Render("(" + tags + ")"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Meal renders a single recipe with its ingredient slots.
func Meal(m recipe.Meal) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.Name))
	sb.WriteString("\n")
	if tags := joinNonEmpty(" · ", m.Category, m.Area, m.Source); tags != "" {
		sb.WriteString(dimStyle.Render(tags))
		sb.WriteString("\n")
	}
	items, _ := shopping.ExtractIngredients(m)
	for _, it := range items {
		sb.WriteString("• ")
		sb.WriteString(ingredientStyle.Render(it.Ingredient))
		if it.Measure != "" {
			sb.WriteString(" ")
			sb.WriteString(measureStyle.Render(it.Measure))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
