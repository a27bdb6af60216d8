package matcher

import (
	"math"
	"strings"
	"unicode/utf8"

	"smart-nutrition/internal/catalog"
)

// DefaultMinConfidence is the threshold used by the food analysis flow.
const DefaultMinConfidence = 0.4

// PreparationBoost is added to the name similarity when the preparation
// method agrees with the food's category.
const PreparationBoost = 0.1

var stopWords = map[string]struct{}{
	"de": {}, "con": {}, "en": {}, "la": {}, "el": {}, "a": {}, "al": {}, "y": {}, "o": {},
}

var (
	friedTerms   = []string{"frito", "frita", "fried"}
	grilledTerms = []string{"plancha", "asado", "asada", "grilled", "roasted"}
)

// DetectedFoodItem is one food reported by the vision service.
type DetectedFoodItem struct {
	Name           string  `json:"name"`
	EstimatedGrams int     `json:"estimated_grams"`
	Preparation    string  `json:"preparation"`
	Confidence     float64 `json:"confidence"`
}

// Match pairs a catalog entry with the confidence of the match.
type Match struct {
	Food       catalog.Food
	Confidence float64
}

// MatchResult is a detection with its catalog match, if any.
type MatchResult struct {
	Item  DetectedFoodItem
	Match *Match
}

// Nutrition returns the portion macros: scaled from the catalog entry when
// matched, or the heuristic estimate otherwise.
func (r MatchResult) Nutrition() catalog.Nutrition {
	if r.Match == nil {
		return EstimateUnmatched(r.Item.EstimatedGrams)
	}
	return CalculateNutrition(r.Match.Food, float64(r.Item.EstimatedGrams))
}

// Matcher resolves free-text food names against a fixed catalog. It is safe
// for concurrent use once built.
type Matcher struct {
	foods []catalog.Food
	index map[string][]int
}

// New builds the keyword index over the catalog entries' display names.
func New(foods []catalog.Food) *Matcher {
	m := &Matcher{
		foods: make([]catalog.Food, len(foods)),
		index: make(map[string][]int),
	}
	copy(m.foods, foods)

	for i, f := range m.foods {
		for _, kw := range Keywords(f.Name) {
			m.index[kw] = append(m.index[kw], i)
		}
	}
	return m
}

// Keywords lower-cases and splits text on whitespace, dropping stop words and
// tokens of two characters or fewer.
func Keywords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// MatchFood returns the best catalog entry for detectedName when its score
// reaches minConfidence. Candidates are the entries sharing at least one
// keyword with the name; ties keep the first candidate encountered.
func (m *Matcher) MatchFood(detectedName, preparation string, minConfidence float64) (Match, bool) {
	prep := strings.ToLower(preparation)

	var (
		best      Match
		bestScore float64
		found     bool
	)
	seen := make(map[string]struct{})
	for _, kw := range Keywords(detectedName) {
		for _, idx := range m.index[kw] {
			food := m.foods[idx]
			if _, dup := seen[food.ID]; dup {
				continue
			}
			seen[food.ID] = struct{}{}

			score := math.Min(Similarity(detectedName, food.Name)+preparationBoost(prep, food), 1.0)
			if score > bestScore {
				bestScore = score
				best = Match{Food: food, Confidence: score}
				found = true
			}
		}
	}

	if !found || bestScore < minConfidence {
		return Match{}, false
	}
	return best, true
}

// Match runs MatchFood for a detection and wraps the outcome.
func (m *Matcher) Match(item DetectedFoodItem, minConfidence float64) MatchResult {
	match, ok := m.MatchFood(item.Name, item.Preparation, minConfidence)
	if !ok {
		return MatchResult{Item: item}
	}
	return MatchResult{Item: item, Match: &match}
}

func preparationBoost(prep string, food catalog.Food) float64 {
	if prep == "" {
		return 0
	}
	if containsAny(prep, grilledTerms) && food.HasCategory(catalog.CategoryProtein) {
		return PreparationBoost
	}
	if containsAny(prep, friedTerms) &&
		(food.HasCategory(catalog.CategoryFats) || containsAny(strings.ToLower(food.Name), friedTerms)) {
		return PreparationBoost
	}
	return 0
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// CalculateNutrition scales the entry's per-100g macros to grams and rounds
// each value to one decimal.
func CalculateNutrition(food catalog.Food, grams float64) catalog.Nutrition {
	n := food.ForPortion(grams)
	return catalog.Nutrition{
		Calories: Round1(n.Calories),
		Protein:  Round1(n.Protein),
		Carbs:    Round1(n.Carbs),
		Fat:      Round1(n.Fat),
	}
}

// EstimateUnmatched approximates a portion that matched nothing in the
// catalog: 1.5 kcal per gram split 20/50/30 across protein, carbs and fat.
func EstimateUnmatched(grams int) catalog.Nutrition {
	calories := float64(grams) * 1.5
	return catalog.Nutrition{
		Calories: calories,
		Protein:  calories * 0.20 / 4,
		Carbs:    calories * 0.50 / 4,
		Fat:      calories * 0.30 / 9,
	}
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
