package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"meal-shopper/internal/recipe"
)

// ErrNoIngredients is returned when a page carries no recognizable ingredient list.
var ErrNoIngredients = errors.New("no ingredients found on page")

// IDPrefix marks recipe ids minted from imported pages.
const IDPrefix = "web-"

const defaultTimeout = 15 * time.Second

// Clipper handles fetching recipe pages and turning them into recipe records.
type Clipper struct {
	httpClient *http.Client
}

// NewClipper creates a new Clipper. A nil client gets a default with a 15s timeout.
func NewClipper(httpClient *http.Client) *Clipper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Clipper{httpClient: httpClient}
}

// Clip fetches pageURL and parses the recipe it describes.
func (c *Clipper) Clip(ctx context.Context, pageURL string) (recipe.Meal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return recipe.Meal{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recipe.Meal{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return recipe.Meal{}, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return ParseRecipe(resp.Body, pageURL)
}

// RecipeID derives the stable recipe id of an imported page, so importing the
// same URL twice lands on the same shopping list entries.
func RecipeID(pageURL string) string {
	return IDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL)).String()
}

// ParseRecipe extracts a recipe record from an HTML document. Ingredients come
// from JSON-LD Recipe data when present, then schema.org microdata, then a
// plain ".ingredients li" list.
func ParseRecipe(r io.Reader, pageURL string) (recipe.Meal, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return recipe.Meal{}, fmt.Errorf("failed to parse html: %w", err)
	}

	meal := recipe.Meal{
		ID:        RecipeID(pageURL),
		Source:    pageURL,
		Name:      title(doc),
		Thumbnail: attr(doc, `meta[property="og:image"]`, "content"),
	}

	lines := jsonLDIngredients(doc)
	if len(lines) == 0 {
		lines = texts(doc.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`))
	}
	if len(lines) == 0 {
		lines = texts(doc.Find(".ingredients li"))
	}
	if len(lines) == 0 {
		return recipe.Meal{}, fmt.Errorf("%w: %s", ErrNoIngredients, pageURL)
	}

	for _, line := range lines {
		measure, name := SplitQuantity(line)
		meal.Ingredients = append(meal.Ingredients, recipe.IngredientSlot{Name: name, Measure: measure})
	}
	return meal, nil
}

func title(doc *goquery.Document) string {
	if t := attr(doc, `meta[property="og:title"]`, "content"); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := collapseSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

type ldNode struct {
	Type             any               `json:"@type"`
	Graph            []json.RawMessage `json:"@graph"`
	RecipeIngredient []string          `json:"recipeIngredient"`
}

func jsonLDIngredients(doc *goquery.Document) []string {
	var out []string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = findRecipeIngredients([]byte(s.Text()))
		return len(out) == 0
	})
	return out
}

// findRecipeIngredients walks a JSON-LD payload, which may be a single node,
// an array of nodes, or a node carrying an @graph.
func findRecipeIngredients(data []byte) []string {
	var nodes []json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		nodes = []json.RawMessage{data}
	}

	for _, raw := range nodes {
		var n ldNode
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		if isRecipe(n.Type) {
			var out []string
			for _, line := range n.RecipeIngredient {
				if t := collapseSpace(line); t != "" {
					out = append(out, t)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
		for _, g := range n.Graph {
			if out := findRecipeIngredients(g); len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func isRecipe(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

var units = map[string]bool{
	"g": true, "kg": true, "mg": true, "ml": true, "l": true, "oz": true, "lb": true, "lbs": true,
	"cup": true, "cups": true, "tsp": true, "tsps": true, "tbsp": true, "tbsps": true, "tbs": true,
	"teaspoon": true, "teaspoons": true, "tablespoon": true, "tablespoons": true,
	"pound": true, "pounds": true, "ounce": true, "ounces": true, "gram": true, "grams": true,
	"pinch": true, "dash": true, "clove": true, "cloves": true, "can": true, "cans": true,
	"handful": true, "slice": true, "slices": true, "sprig": true, "sprigs": true,
}

// SplitQuantity splits a free-text ingredient line such as "2 cups flour"
// into its measure ("2 cups") and ingredient name ("flour"). Lines without a
// leading quantity are returned whole as the name.
func SplitQuantity(line string) (measure, name string) {
	fields := strings.Fields(line)
	n := 0
	for n < len(fields) && isQuantity(fields[n]) {
		n++
	}
	if n == 0 {
		return "", strings.Join(fields, " ")
	}
	if n < len(fields) && units[strings.ToLower(strings.Trim(fields[n], ".,"))] {
		n++
	}
	if n == len(fields) {
		return "", strings.Join(fields, " ")
	}
	name = strings.TrimPrefix(strings.Join(fields[n:], " "), "of ")
	return strings.Join(fields[:n], " "), name
}

func isQuantity(tok string) bool {
	hasDigit := false
	for _, r := range tok {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.Is(unicode.No, r):
			// vulgar fractions such as ½
			hasDigit = true
		case r == '/' || r == '.' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return hasDigit
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
