package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/matcher"
	"smart-nutrition/internal/shared"
	"smart-nutrition/internal/vision"
)

type mockAnalyzer struct {
	result vision.Result
	err    error
	calls  int
}

func (m *mockAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (vision.Result, error) {
	m.calls++
	return m.result, m.err
}

type mockRecorder struct {
	metas []shared.CallMeta
}

func (m *mockRecorder) RecordMeta(ctx context.Context, meta shared.CallMeta) error {
	m.metas = append(m.metas, meta)
	return nil
}

var testFoods = []catalog.Food{
	{ID: "pechuga-pollo", Name: "Pechuga de Pollo", Category: []string{"protein"}, Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6, Emoji: "🍗"},
	{ID: "arroz-blanco", Name: "Arroz Blanco", Category: []string{"carbs"}, Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3},
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyze(t *testing.T) {
	analyzer := &mockAnalyzer{result: vision.Result{
		Analysis: vision.Analysis{
			Foods: []vision.DetectedFood{
				{Name: "Pechuga de pollo", EstimatedGrams: 150, Preparation: "a la plancha", Confidence: 0.9},
				{Name: "Pizza hawaiana", EstimatedGrams: 200, Preparation: "al horno", Confidence: 0.6},
			},
			MealDescription: "Almuerzo mixto",
		},
		Meta: shared.CallMeta{Component: vision.Component, Usage: shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Model: "test"}, Latency: time.Second},
	}}
	recorder := &mockRecorder{}

	svc := NewService(analyzer, matcher.New(testFoods), recorder, 0)
	svc.newID = func() string { return "fixed-id" }

	res, err := svc.Analyze(context.Background(), []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.AnalysisID != "fixed-id" || !res.Success {
		t.Errorf("Unexpected header %+v", res)
	}
	if res.MealDescription != "Almuerzo mixto" {
		t.Errorf("Expected meal description to be kept, got %q", res.MealDescription)
	}
	if len(res.MatchedFoods) != 2 {
		t.Fatalf("Expected 2 foods, got %d", len(res.MatchedFoods))
	}

	t.Run("Matched", func(t *testing.T) {
		f := res.MatchedFoods[0]
		if f.MatchedFoodID == nil || *f.MatchedFoodID != "pechuga-pollo" {
			t.Fatalf("Expected pechuga-pollo, got %v", f.MatchedFoodID)
		}
		if f.MatchConfidence == nil || *f.MatchConfidence != 1 {
			t.Errorf("Expected match confidence 1, got %v", f.MatchConfidence)
		}
		if !approx(f.Calories, 247.5) || !approx(f.Protein, 46.5) || !approx(f.Fat, 5.4) {
			t.Errorf("Unexpected nutrition %+v", f)
		}
		if f.Emoji != "🍗" {
			t.Errorf("Expected catalog emoji, got %q", f.Emoji)
		}
	})

	t.Run("Unmatched", func(t *testing.T) {
		f := res.MatchedFoods[1]
		if f.MatchedFoodID != nil || f.MatchedFoodName != nil || f.MatchConfidence != nil {
			t.Errorf("Expected no match fields, got %+v", f)
		}
		if !approx(f.Calories, 300) || !approx(f.Protein, 15) || !approx(f.Carbs, 37.5) || !approx(f.Fat, 10) {
			t.Errorf("Unexpected fallback nutrition %+v", f)
		}
		if f.Emoji != catalog.DefaultEmoji {
			t.Errorf("Expected default emoji, got %q", f.Emoji)
		}
	})

	t.Run("Totals", func(t *testing.T) {
		if !approx(res.TotalCalories, 547.5) || !approx(res.TotalProtein, 61.5) ||
			!approx(res.TotalCarbs, 37.5) || !approx(res.TotalFat, 15.4) {
			t.Errorf("Unexpected totals %+v", res)
		}
	})

	if len(recorder.metas) != 1 || recorder.metas[0].Usage.TotalTokens != 15 {
		t.Errorf("Expected the vision call to be recorded, got %+v", recorder.metas)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	analyzer := &mockAnalyzer{err: errors.New("quota exceeded")}
	svc := NewService(analyzer, matcher.New(testFoods), nil, 0.4)

	if _, err := svc.Analyze(context.Background(), nil, "image/png"); !errors.Is(err, vision.ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
	if analyzer.calls != 0 {
		t.Errorf("Expected the analyzer not to be called for an empty image")
	}

	if _, err := svc.Analyze(context.Background(), []byte("x"), "image/png"); err == nil {
		t.Error("Expected analyzer error to propagate")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	svc := NewService(&mockAnalyzer{}, matcher.New(nil), nil, 0)
	res := svc.Summarize(vision.Analysis{})
	if res.MatchedFoods == nil || len(res.MatchedFoods) != 0 {
		t.Errorf("Expected an empty non-nil list, got %v", res.MatchedFoods)
	}
	if res.TotalCalories != 0 {
		t.Errorf("Expected zero totals, got %v", res.TotalCalories)
	}
	if res.AnalysisID == "" {
		t.Error("Expected a generated analysis id")
	}
}
