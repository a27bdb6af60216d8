package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed foods.json
var defaultFoods []byte

// Category tags used across the catalog.
const (
	CategoryProtein    = "protein"
	CategoryCarbs      = "carbs"
	CategoryVegetables = "vegetables"
	CategoryFruits     = "fruits"
	CategoryFats       = "fats"
	CategoryDairy      = "dairy"
	CategorySnacks     = "snacks"
	CategoryPeruvian   = "peruvian"
)

// DefaultEmoji is shown for foods that carry no glyph of their own.
const DefaultEmoji = "🍽️"

// Food is one row of the nutrition reference table. Macro values are per 100g.
type Food struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category []string `json:"category"`
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Emoji    string   `json:"emoji,omitempty"`
}

// Nutrition holds the macros of a concrete portion.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Add returns the sum of two nutrition values.
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
	}
}

// HasCategory reports whether the food is tagged with the given category.
func (f Food) HasCategory(tag string) bool {
	for _, c := range f.Category {
		if c == tag {
			return true
		}
	}
	return false
}

// PrimaryCategory is the first tag of the entry, used to group foods for variety.
func (f Food) PrimaryCategory() string {
	if len(f.Category) == 0 {
		return ""
	}
	return f.Category[0]
}

// GlyphOrDefault returns the food emoji, falling back to DefaultEmoji.
func (f Food) GlyphOrDefault() string {
	if f.Emoji == "" {
		return DefaultEmoji
	}
	return f.Emoji
}

// ForPortion scales the per-100g macros linearly to the given grams, unrounded.
func (f Food) ForPortion(grams float64) Nutrition {
	ratio := grams / 100.0
	return Nutrition{
		Calories: f.Calories * ratio,
		Protein:  f.Protein * ratio,
		Carbs:    f.Carbs * ratio,
		Fat:      f.Fat * ratio,
	}
}

// Catalog is an ordered, read-only list of foods loaded once at startup.
type Catalog struct {
	foods []Food
}

// New builds a Catalog from already validated foods. The slice is copied.
func New(foods []Food) *Catalog {
	cp := make([]Food, len(foods))
	copy(cp, foods)
	return &Catalog{foods: cp}
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultFoods
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read food catalog %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a JSON list of foods and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var foods []Food
	if err := json.Unmarshal(data, &foods); err != nil {
		return nil, fmt.Errorf("failed to unmarshal food catalog: %w", err)
	}
	for i := range foods {
		if foods[i].ID == "" {
			foods[i].ID = Slug(foods[i].Name)
		}
		if err := Validate(foods[i]); err != nil {
			return nil, fmt.Errorf("invalid catalog entry %d: %w", i, err)
		}
	}
	return New(foods), nil
}

// Validate rejects entries with missing fields or negative macros.
func Validate(f Food) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if f.ID == "" {
		return fmt.Errorf("id is required for %q", f.Name)
	}
	if len(f.Category) == 0 {
		return fmt.Errorf("%s: at least one category is required", f.ID)
	}
	if f.Calories < 0 {
		return fmt.Errorf("%s: calories cannot be negative", f.ID)
	}
	if f.Protein < 0 || f.Carbs < 0 || f.Fat < 0 {
		return fmt.Errorf("%s: macronutrients cannot be negative", f.ID)
	}
	return nil
}

// Foods returns a copy of the entries in catalog order.
func (c *Catalog) Foods() []Food {
	cp := make([]Food, len(c.foods))
	copy(cp, c.foods)
	return cp
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.foods)
}

// Get looks up a food by id.
func (c *Catalog) Get(id string) (Food, bool) {
	for _, f := range c.foods {
		if f.ID == id {
			return f, true
		}
	}
	return Food{}, false
}

// ByCategory returns the foods carrying tag, preserving catalog order.
func (c *Catalog) ByCategory(tag string) []Food {
	var out []Food
	for _, f := range c.foods {
		if f.HasCategory(tag) {
			out = append(out, f)
		}
	}
	return out
}

// Slug derives an identifier from a display name.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
