package analysis

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/matcher"
	"smart-nutrition/internal/shared"
	"smart-nutrition/internal/vision"
)

// MetricsRecorder persists the cost of a model call.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.CallMeta) error
}

// MatchedFood is one detected item with the nutrition attributed to it.
type MatchedFood struct {
	DetectedName    string   `json:"detected_name"`
	MatchedFoodID   *string  `json:"matched_food_id"`
	MatchedFoodName *string  `json:"matched_food_name"`
	Grams           int      `json:"grams"`
	Preparation     string   `json:"preparation"`
	Confidence      float64  `json:"confidence"`
	MatchConfidence *float64 `json:"match_confidence"`
	Calories        float64  `json:"calories"`
	Protein         float64  `json:"protein"`
	Carbs           float64  `json:"carbs"`
	Fat             float64  `json:"fat"`
	Emoji           string   `json:"emoji"`
}

// Result is the full answer for one photo.
type Result struct {
	AnalysisID      string        `json:"analysis_id"`
	Success         bool          `json:"success"`
	MatchedFoods    []MatchedFood `json:"matched_foods"`
	MealDescription string        `json:"meal_description"`
	TotalCalories   float64       `json:"total_calories"`
	TotalProtein    float64       `json:"total_protein"`
	TotalCarbs      float64       `json:"total_carbs"`
	TotalFat        float64       `json:"total_fat"`
}

// Service turns a meal photo into matched foods and totals.
type Service struct {
	analyzer      vision.Analyzer
	matcher       *matcher.Matcher
	metrics       MetricsRecorder
	minConfidence float64
	newID         func() string
}

// NewService creates a Service. metrics may be nil.
func NewService(analyzer vision.Analyzer, m *matcher.Matcher, metrics MetricsRecorder, minConfidence float64) *Service {
	if minConfidence <= 0 {
		minConfidence = matcher.DefaultMinConfidence
	}
	return &Service{
		analyzer:      analyzer,
		matcher:       m,
		metrics:       metrics,
		minConfidence: minConfidence,
		newID:         uuid.NewString,
	}
}

// Analyze runs the vision model on the photo and matches every detection
// against the catalog.
func (s *Service) Analyze(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	if len(image) == 0 {
		return nil, vision.ErrEmptyImage
	}

	res, err := s.analyzer.Analyze(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze image: %w", err)
	}

	if s.metrics != nil {
		if err := s.metrics.RecordMeta(ctx, res.Meta); err != nil {
			log.Printf("Warning: failed to record vision metrics: %v", err)
		}
	}

	return s.Summarize(res.Analysis), nil
}

// Summarize matches an already obtained analysis.
func (s *Service) Summarize(a vision.Analysis) *Result {
	out := &Result{
		AnalysisID:      s.newID(),
		Success:         true,
		MatchedFoods:    make([]MatchedFood, 0, len(a.Foods)),
		MealDescription: a.MealDescription,
	}

	var total catalog.Nutrition
	for _, d := range a.Foods {
		r := s.matcher.Match(matcher.DetectedFoodItem{
			Name:           d.Name,
			EstimatedGrams: d.EstimatedGrams,
			Preparation:    d.Preparation,
			Confidence:     d.Confidence,
		}, s.minConfidence)

		mf := toMatchedFood(r)
		out.MatchedFoods = append(out.MatchedFoods, mf)
		total = total.Add(catalog.Nutrition{Calories: mf.Calories, Protein: mf.Protein, Carbs: mf.Carbs, Fat: mf.Fat})
	}

	out.TotalCalories = matcher.Round1(total.Calories)
	out.TotalProtein = matcher.Round1(total.Protein)
	out.TotalCarbs = matcher.Round1(total.Carbs)
	out.TotalFat = matcher.Round1(total.Fat)
	return out
}

func toMatchedFood(r matcher.MatchResult) MatchedFood {
	n := r.Nutrition()
	mf := MatchedFood{
		DetectedName: r.Item.Name,
		Grams:        r.Item.EstimatedGrams,
		Preparation:  r.Item.Preparation,
		Confidence:   r.Item.Confidence,
		Calories:     n.Calories,
		Protein:      n.Protein,
		Carbs:        n.Carbs,
		Fat:          n.Fat,
		Emoji:        catalog.DefaultEmoji,
	}
	if r.Match != nil {
		id, name, conf := r.Match.Food.ID, r.Match.Food.Name, r.Match.Confidence
		mf.MatchedFoodID = &id
		mf.MatchedFoodName = &name
		mf.MatchConfidence = &conf
		mf.Emoji = r.Match.Food.GlyphOrDefault()
	}
	return mf
}
