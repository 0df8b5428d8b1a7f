package recipe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxIngredientSlots is the number of ingredient positions read from a single
// recipe before the scan is cut off.
const MaxIngredientSlots = 30

// maxDecodedSlots bounds how many positional fields are kept when decoding a
// record from the wire, so a malformed payload cannot force a huge allocation.
const maxDecodedSlots = 2 * MaxIngredientSlots

const (
	ingredientPrefix = "strIngredient"
	measurePrefix    = "strMeasure"
)

// IngredientSlot is one positional ingredient/measure pair of a recipe.
// Either side may be blank.
type IngredientSlot struct {
	Name    string
	Measure string
}

// Meal is a recipe record as served by TheMealDB (or built by another source).
// Ingredients[k] holds position k+1; holes are kept as blank slots.
type Meal struct {
	ID           string
	Name         string
	Category     string
	Area         string
	Thumbnail    string
	Instructions string
	Tags         string
	YouTube      string
	Source       string
	ImageSource  string
	DateModified string
	Ingredients  []IngredientSlot
}

// MealsResponse is the envelope returned by the search and lookup endpoints.
// The API answers with "meals": null when nothing matches.
type MealsResponse struct {
	Meals []Meal `json:"meals"`
}

// Slot returns the ingredient pair at the 1-based position i.
func (m Meal) Slot(i int) (IngredientSlot, bool) {
	if i < 1 || i > len(m.Ingredients) {
		return IngredientSlot{}, false
	}
	return m.Ingredients[i-1], true
}

func (m *Meal) wireFields() map[string]*string {
	return map[string]*string{
		"idMeal":          &m.ID,
		"strMeal":         &m.Name,
		"strCategory":     &m.Category,
		"strArea":         &m.Area,
		"strMealThumb":    &m.Thumbnail,
		"strInstructions": &m.Instructions,
		"strTags":         &m.Tags,
		"strYoutube":      &m.YouTube,
		"strSource":       &m.Source,
		"strImageSource":  &m.ImageSource,
		"dateModified":    &m.DateModified,
	}
}

// UnmarshalJSON decodes the flat TheMealDB shape, folding the numbered
// strIngredientN/strMeasureN keys into Ingredients.
func (m *Meal) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode meal: %w", err)
	}

	*m = Meal{}
	fields := m.wireFields()
	names := map[int]string{}
	measures := map[int]string{}
	highest := 0

	for key, value := range raw {
		var s *string
		if err := json.Unmarshal(value, &s); err != nil {
			// non-string values are not part of the record
			continue
		}
		text := ""
		if s != nil {
			text = *s
		}

		if dst, ok := fields[key]; ok {
			*dst = text
			continue
		}

		var target map[int]string
		var suffix string
		if rest, ok := strings.CutPrefix(key, ingredientPrefix); ok {
			target, suffix = names, rest
		} else if rest, ok := strings.CutPrefix(key, measurePrefix); ok {
			target, suffix = measures, rest
		} else {
			continue
		}

		pos, err := strconv.Atoi(suffix)
		if err != nil || pos < 1 || pos > maxDecodedSlots {
			continue
		}
		target[pos] = text
		if pos > highest {
			highest = pos
		}
	}

	if highest > 0 {
		m.Ingredients = make([]IngredientSlot, highest)
		for pos, name := range names {
			m.Ingredients[pos-1].Name = name
		}
		for pos, measure := range measures {
			m.Ingredients[pos-1].Measure = measure
		}
	}
	return nil
}

// MarshalJSON writes the record back in the TheMealDB shape.
func (m Meal) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, 11+2*len(m.Ingredients))
	for key, value := range m.wireFields() {
		out[key] = *value
	}
	for i, slot := range m.Ingredients {
		out[fmt.Sprintf("%s%d", ingredientPrefix, i+1)] = slot.Name
		out[fmt.Sprintf("%s%d", measurePrefix, i+1)] = slot.Measure
	}
	return json.Marshal(out)
}
