package optimizer

import (
	"math"
	"sort"

	"smart-nutrition/internal/catalog"
)

// Scan defaults for OptimizePortionSize.
const (
	DefaultMaxGrams           = 500.0
	DefaultMinGrams           = 20.0
	DefaultStepGrams          = 10.0
	DefaultEarlyExitScore     = 5.0
	DefaultMaxRecommendations = 5
	CompletionTolerance       = 5.0
)

// Score weights. Protein carries the most weight, calories the least per unit.
const (
	calorieWeight      = 0.1
	proteinWeight      = 4.0
	carbsWeight        = 1.0
	fatWeight          = 2.0
	overCaloriePenalty = 1.5
)

// MacroTarget is what is left of the day's goal. Negative values mean the
// target was already exceeded.
type MacroTarget struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// IsComplete reports whether every value is within CompletionTolerance of zero.
func (t MacroTarget) IsComplete() bool {
	for _, v := range []float64{t.Calories, t.ProteinG, t.CarbsG, t.FatG} {
		if math.Abs(v) > CompletionTolerance {
			return false
		}
	}
	return true
}

// Subtract removes a portion's nutrition from the target.
func (t MacroTarget) Subtract(n catalog.Nutrition) MacroTarget {
	return MacroTarget{
		Calories: t.Calories - n.Calories,
		ProteinG: t.ProteinG - n.Protein,
		CarbsG:   t.CarbsG - n.Carbs,
		FatG:     t.FatG - n.Fat,
	}
}

// FoodRecommendation is a food with the portion that best fits the target.
// Lower scores are better.
type FoodRecommendation struct {
	Food      catalog.Food      `json:"food"`
	Grams     float64           `json:"grams"`
	Score     float64           `json:"score"`
	Nutrition catalog.Nutrition `json:"nutrition"`
}

// MealCompletion holds one suggestion per macro slot. Any slot may be nil.
type MealCompletion struct {
	Protein *FoodRecommendation `json:"protein"`
	Carb    *FoodRecommendation `json:"carb"`
	Fat     *FoodRecommendation `json:"fat"`
}

// PortionOptions bounds the portion scan. EarlyExitScore stops the scan as
// soon as the best score drops below it; zero disables the early exit.
type PortionOptions struct {
	MinGrams       float64
	MaxGrams       float64
	StepGrams      float64
	EarlyExitScore float64
}

// DefaultPortionOptions returns the 20g to 500g scan in 10g steps.
func DefaultPortionOptions() PortionOptions {
	return PortionOptions{
		MinGrams:       DefaultMinGrams,
		MaxGrams:       DefaultMaxGrams,
		StepGrams:      DefaultStepGrams,
		EarlyExitScore: DefaultEarlyExitScore,
	}
}

// Optimizer recommends food portions that close a remaining macro gap.
type Optimizer struct {
	opts PortionOptions
}

// New creates an Optimizer. Non-positive step or min values fall back to the defaults.
func New(opts PortionOptions) *Optimizer {
	return &Optimizer{opts: opts.normalized()}
}

// normalized fills unusable values with the defaults. The zero value becomes
// DefaultPortionOptions, so a zero Optimizer scans the default range.
func (p PortionOptions) normalized() PortionOptions {
	if p == (PortionOptions{}) {
		return DefaultPortionOptions()
	}
	if p.StepGrams <= 0 {
		p.StepGrams = DefaultStepGrams
	}
	if p.MinGrams <= 0 {
		p.MinGrams = DefaultMinGrams
	}
	if p.MaxGrams < p.MinGrams {
		p.MaxGrams = p.MinGrams
	}
	return p
}

// CalculateMacroScore is the weighted distance between a portion of food and
// the remaining target. Going over the calorie target costs 1.5x.
func CalculateMacroScore(food catalog.Food, grams float64, remaining MacroTarget) float64 {
	n := food.ForPortion(grams)

	calDiff := n.Calories - remaining.Calories
	proteinDiff := n.Protein - remaining.ProteinG
	carbsDiff := n.Carbs - remaining.CarbsG
	fatDiff := n.Fat - remaining.FatG

	score := math.Abs(calDiff)*calorieWeight +
		math.Abs(proteinDiff)*proteinWeight +
		math.Abs(carbsDiff)*carbsWeight +
		math.Abs(fatDiff)*fatWeight

	if calDiff > 0 {
		score *= overCaloriePenalty
	}
	return score
}

// OptimizePortionSize scans portions from MinGrams to MaxGrams and returns the
// lowest scoring one. Ties keep the smaller portion. The scan stops early once
// a score under EarlyExitScore is found, so the result is the first good
// enough fit rather than the global optimum.
func (o *Optimizer) OptimizePortionSize(food catalog.Food, remaining MacroTarget) (grams, score float64) {
	opts := o.opts.normalized()
	grams = opts.MinGrams
	score = math.Inf(1)

	for g := opts.MinGrams; g <= opts.MaxGrams; g += opts.StepGrams {
		s := CalculateMacroScore(food, g, remaining)
		if s < score {
			score = s
			grams = g
		}
		if score < opts.EarlyExitScore {
			break
		}
	}
	return grams, score
}

// RecommendFoods ranks foods by fit and returns up to max of them, taking one
// food per primary category first and then filling with the best remaining
// scores. Zero-calorie foods are skipped. A complete target yields nothing.
func (o *Optimizer) RecommendFoods(foods []catalog.Food, remaining MacroTarget, max int) []FoodRecommendation {
	if remaining.IsComplete() || max <= 0 {
		return nil
	}

	recs := make([]FoodRecommendation, 0, len(foods))
	for _, food := range foods {
		if food.Calories <= 0 {
			continue
		}
		grams, score := o.OptimizePortionSize(food, remaining)
		recs = append(recs, FoodRecommendation{
			Food:      food,
			Grams:     grams,
			Score:     score,
			Nutrition: food.ForPortion(grams),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score < recs[j].Score
	})

	return diversify(recs, max)
}

func diversify(sorted []FoodRecommendation, max int) []FoodRecommendation {
	picked := make([]bool, len(sorted))
	out := make([]FoodRecommendation, 0, max)

	seen := make(map[string]struct{})
	for i, rec := range sorted {
		if len(out) >= max {
			break
		}
		category := rec.Food.PrimaryCategory()
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		picked[i] = true
		out = append(out, rec)
	}

	for i, rec := range sorted {
		if len(out) >= max {
			break
		}
		if picked[i] {
			continue
		}
		picked[i] = true
		out = append(out, rec)
	}
	return out
}

// SuggestMealCompletion fills the protein, carb and fat slots in that order,
// each against the target left after the previous picks.
func (o *Optimizer) SuggestMealCompletion(remaining MacroTarget, proteinFoods, carbFoods, fatFoods []catalog.Food) MealCompletion {
	var meal MealCompletion

	meal.Protein, remaining = o.bestFor(proteinFoods, remaining)
	meal.Carb, remaining = o.bestFor(carbFoods, remaining)
	meal.Fat, _ = o.bestFor(fatFoods, remaining)

	return meal
}

func (o *Optimizer) bestFor(foods []catalog.Food, remaining MacroTarget) (*FoodRecommendation, MacroTarget) {
	if len(foods) == 0 {
		return nil, remaining
	}
	recs := o.RecommendFoods(foods, remaining, 1)
	if len(recs) == 0 {
		return nil, remaining
	}
	best := recs[0]
	return &best, remaining.Subtract(best.Nutrition)
}
