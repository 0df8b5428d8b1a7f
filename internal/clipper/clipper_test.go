package clipper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meal-shopper/internal/recipe"
)

const microdataPage = `
<html>
	<head>
		<title>Tasty Site | Pancakes</title>
		<meta property="og:image" content="https://example.com/pancakes.jpg">
	</head>
	<body>
		<h1>Fluffy Pancakes</h1>
		<ul>
			<li itemprop="recipeIngredient">2 cups  flour</li>
			<li itemprop="recipeIngredient">1 1/2 cups of milk</li>
			<li itemprop="recipeIngredient">Salt</li>
			<li itemprop="recipeIngredient">  </li>
		</ul>
	</body>
</html>`

func TestParseRecipe_Microdata(t *testing.T) {
	meal, err := ParseRecipe(strings.NewReader(microdataPage), "https://example.com/pancakes")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if meal.Name != "Fluffy Pancakes" {
		t.Errorf("Expected name 'Fluffy Pancakes', got '%s'", meal.Name)
	}
	if meal.Thumbnail != "https://example.com/pancakes.jpg" {
		t.Errorf("Unexpected thumbnail '%s'", meal.Thumbnail)
	}
	if meal.Source != "https://example.com/pancakes" {
		t.Errorf("Unexpected source '%s'", meal.Source)
	}

	want := []recipe.IngredientSlot{
		{Name: "flour", Measure: "2 cups"},
		{Name: "milk", Measure: "1 1/2 cups"},
		{Name: "Salt", Measure: ""},
	}
	if len(meal.Ingredients) != len(want) {
		t.Fatalf("Expected %d ingredients, got %d: %+v", len(want), len(meal.Ingredients), meal.Ingredients)
	}
	for i, w := range want {
		if meal.Ingredients[i] != w {
			t.Errorf("Ingredient %d: expected %+v, got %+v", i+1, w, meal.Ingredients[i])
		}
	}
}

func TestParseRecipe_JSONLDGraph(t *testing.T) {
	page := `<html><head>
		<meta property="og:title" content="Shakshuka">
		<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
			{"@type":"WebPage","name":"x"},
			{"@type":["Recipe"],"recipeIngredient":["4 eggs","1 can tomatoes"]}
		]}</script>
	</head><body><h1>Ignored heading</h1>
		<ul class="ingredients"><li>should not be used</li></ul>
	</body></html>`

	meal, err := ParseRecipe(strings.NewReader(page), "https://example.com/shakshuka")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if meal.Name != "Shakshuka" {
		t.Errorf("Expected og:title to win, got '%s'", meal.Name)
	}
	if len(meal.Ingredients) != 2 {
		t.Fatalf("Expected 2 ingredients, got %+v", meal.Ingredients)
	}
	if meal.Ingredients[1].Name != "tomatoes" || meal.Ingredients[1].Measure != "1 can" {
		t.Errorf("Unexpected second ingredient %+v", meal.Ingredients[1])
	}
}

func TestParseRecipe_ClassFallback(t *testing.T) {
	page := `<html><body><h1>Toast</h1><div class="ingredients"><ul>
		<li>Bread</li><li>Butter</li>
	</ul></div></body></html>`

	meal, err := ParseRecipe(strings.NewReader(page), "https://example.com/toast")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(meal.Ingredients) != 2 || meal.Ingredients[0].Name != "Bread" {
		t.Errorf("Unexpected ingredients %+v", meal.Ingredients)
	}
}

func TestParseRecipe_NoIngredients(t *testing.T) {
	_, err := ParseRecipe(strings.NewReader("<html><body><p>Just a blog post</p></body></html>"), "https://example.com/blog")
	if !errors.Is(err, ErrNoIngredients) {
		t.Errorf("Expected ErrNoIngredients, got %v", err)
	}
}

func TestParseRecipe_KeepsSlotsBeyondCeiling(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><h1>Feast</h1><ul>")
	for i := 1; i <= recipe.MaxIngredientSlots+2; i++ {
		fmt.Fprintf(&sb, `<li itemprop="recipeIngredient">item %d</li>`, i)
	}
	sb.WriteString("</ul></body></html>")

	meal, err := ParseRecipe(strings.NewReader(sb.String()), "https://example.com/feast")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(meal.Ingredients) != recipe.MaxIngredientSlots+2 {
		t.Errorf("Expected all %d lines kept, got %d", recipe.MaxIngredientSlots+2, len(meal.Ingredients))
	}
}

func TestRecipeID_Stable(t *testing.T) {
	a := RecipeID("https://example.com/a")
	if a != RecipeID("https://example.com/a") {
		t.Error("Expected the same URL to map to the same id")
	}
	if a == RecipeID("https://example.com/b") {
		t.Error("Expected different URLs to map to different ids")
	}
	if !strings.HasPrefix(a, IDPrefix) {
		t.Errorf("Expected id to start with %q, got %q", IDPrefix, a)
	}
}

func TestSplitQuantity(t *testing.T) {
	tests := []struct {
		line        string
		wantMeasure string
		wantName    string
	}{
		{"2 cups flour", "2 cups", "flour"},
		{"1/2 tsp salt", "1/2 tsp", "salt"},
		{"½ lemon", "½", "lemon"},
		{"3 eggs", "3", "eggs"},
		{"200 g of butter", "200 g", "butter"},
		{"Salt and pepper", "", "Salt and pepper"},
		{"2", "", "2"},
		{"  olive   oil ", "", "olive oil"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			measure, name := SplitQuantity(tt.line)
			if measure != tt.wantMeasure || name != tt.wantName {
				t.Errorf("SplitQuantity(%q) = (%q, %q), want (%q, %q)", tt.line, measure, name, tt.wantMeasure, tt.wantName)
			}
		})
	}
}

func TestClip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(microdataPage))
	}))
	defer ts.Close()

	c := NewClipper(ts.Client())

	meal, err := c.Clip(context.Background(), ts.URL+"/pancakes")
	if err != nil {
		t.Fatalf("Clip failed: %v", err)
	}
	if meal.ID != RecipeID(ts.URL+"/pancakes") {
		t.Errorf("Unexpected id %q", meal.ID)
	}
	if len(meal.Ingredients) != 3 {
		t.Errorf("Expected 3 ingredients, got %d", len(meal.Ingredients))
	}

	_, err = c.Clip(context.Background(), ts.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Expected status error, got %v", err)
	}
}
