package meals

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"smart-nutrition/internal/database"
)

func newTestRepo(t *testing.T) (*Repository, int64, int64) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "meals.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var ids []int64
	for _, name := range []string{"ana", "bob"} {
		res, err := db.SQL.Exec(`INSERT INTO users (email, username, password_hash, created_at) VALUES (?, ?, 'x', '2026-01-01 00:00:00.000')`, name+"@example.com", name)
		if err != nil {
			t.Fatal(err)
		}
		id, _ := res.LastInsertId()
		ids = append(ids, id)
	}
	return NewRepository(db.SQL), ids[0], ids[1]
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.April, day, hour, 0, 0, 0, time.UTC)
}

func sampleMeals() []Meal {
	return []Meal{
		{FoodID: "arroz-blanco", FoodName: "Arroz Blanco", Emoji: "🍚", Grams: 150, Calories: 195, Protein: 4, Carbs: 42, Fat: 0.5, MealType: "lunch", Timestamp: at(2, 13)},
		{FoodID: "pechuga-pollo", FoodName: "Pechuga de Pollo", Emoji: "🍗", Grams: 120, Calories: 198, Protein: 37.2, Fat: 4.3, MealType: "lunch", Timestamp: at(2, 13)},
		{FoodID: "palta", FoodName: "Palta", Emoji: "🥑", Grams: 50, Calories: 80, Protein: 1, Carbs: 4.3, Fat: 7.4, MealType: "dinner", Timestamp: at(2, 20)},
		{FoodID: "avena", FoodName: "Avena", Emoji: "🥣", Grams: 40, Calories: 155, Protein: 5.3, Carbs: 26.5, Fat: 2.8, MealType: "breakfast", Timestamp: at(1, 8)},
	}
}

func TestSaveBatchDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo, ana, bob := newTestRepo(t)

	n, err := repo.SaveBatch(ctx, ana, sampleMeals())
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 synced, got %d", n)
	}

	n, err = repo.SaveBatch(ctx, ana, sampleMeals())
	if err != nil {
		t.Fatalf("Second SaveBatch failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 synced on replay, got %d", n)
	}

	// Another user logging the same food at the same time is not a duplicate.
	n, err = repo.SaveBatch(ctx, bob, sampleMeals()[:1])
	if err != nil {
		t.Fatalf("SaveBatch for second user failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 synced for second user, got %d", n)
	}
}

func TestSaveBatchRejectsInvalid(t *testing.T) {
	repo, ana, _ := newTestRepo(t)
	bad := sampleMeals()
	bad[1].Timestamp = time.Time{}

	if _, err := repo.SaveBatch(context.Background(), ana, bad); err == nil {
		t.Fatal("Expected an error for a meal without timestamp")
	}
	list, _ := repo.List(context.Background(), ana, Range{})
	if len(list) != 0 {
		t.Errorf("Expected nothing saved, got %d meals", len(list))
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, ana, bob := newTestRepo(t)
	if _, err := repo.SaveBatch(ctx, ana, sampleMeals()); err != nil {
		t.Fatal(err)
	}

	all, err := repo.List(ctx, ana, Range{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 meals, got %d", len(all))
	}
	if all[0].FoodID != "palta" || all[3].FoodID != "avena" {
		t.Errorf("Expected newest first, got %s ... %s", all[0].FoodID, all[3].FoodID)
	}
	if !all[0].Timestamp.Equal(at(2, 20)) {
		t.Errorf("Expected timestamp %v, got %v", at(2, 20), all[0].Timestamp)
	}

	t.Run("Range", func(t *testing.T) {
		got, err := repo.List(ctx, ana, Range{From: at(2, 0), To: at(2, 13)})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("Expected the two lunch items, got %d", len(got))
		}
	})

	t.Run("OtherUser", func(t *testing.T) {
		got, _ := repo.List(ctx, bob, Range{})
		if len(got) != 0 {
			t.Errorf("Expected no meals for bob, got %d", len(got))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		id, _ := strconv.ParseInt(all[0].ID, 10, 64)
		if err := repo.Delete(ctx, bob, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting another user's meal, got %v", err)
		}
		if err := repo.Delete(ctx, ana, id); err != nil {
			t.Errorf("Delete failed: %v", err)
		}
		if err := repo.Delete(ctx, ana, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	repo, ana, _ := newTestRepo(t)
	if _, err := repo.SaveBatch(ctx, ana, sampleMeals()); err != nil {
		t.Fatal(err)
	}

	n, err := repo.Totals(ctx, ana, Day(at(2, 9)))
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if n.Calories != 473 {
		t.Errorf("Expected 473 kcal on April 2nd, got %v", n.Calories)
	}

	empty, err := repo.Totals(ctx, ana, Day(at(5, 9)))
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if empty.Calories != 0 || empty.Protein != 0 {
		t.Errorf("Expected zero totals, got %+v", empty)
	}
}

func TestDay(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)
	r := Day(time.Date(2026, time.April, 2, 23, 30, 0, 0, lima))
	if !r.From.Equal(time.Date(2026, time.April, 2, 5, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected start %v", r.From)
	}
	if r.To.Sub(r.From) != 24*time.Hour {
		t.Errorf("Expected a 24h range, got %v", r.To.Sub(r.From))
	}
}
