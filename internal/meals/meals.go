package meals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/database"
)

// ErrNotFound is returned when a meal does not exist for the user.
var ErrNotFound = errors.New("meal not found")

// Meal is one logged food portion.
type Meal struct {
	ID        string    `json:"id"`
	FoodID    string    `json:"foodId"`
	FoodName  string    `json:"foodName"`
	Emoji     string    `json:"emoji"`
	Grams     float64   `json:"grams"`
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	MealType  string    `json:"mealType"`
	Timestamp time.Time `json:"timestamp"`
}

// Nutrition returns the meal's macros.
func (m Meal) Nutrition() catalog.Nutrition {
	return catalog.Nutrition{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat}
}

// Validate checks the fields the log cannot do without.
func (m Meal) Validate() error {
	if strings.TrimSpace(m.FoodID) == "" {
		return fmt.Errorf("meal food id is required")
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("meal %s has no timestamp", m.FoodID)
	}
	if m.Grams < 0 || m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
		return fmt.Errorf("meal %s has negative values", m.FoodID)
	}
	return nil
}

// Range bounds a listing. Zero values are open ends.
type Range struct {
	From time.Time
	To   time.Time
}

// Repository is a database-backed meal log.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// SaveBatch inserts the meals, skipping any the user already logged with the
// same food and timestamp. It returns how many were new.
func (r *Repository) SaveBatch(ctx context.Context, userID int64, batch []Meal) (int, error) {
	for _, m := range batch {
		if err := m.Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO logged_meals
			(user_id, food_id, food_name, emoji, grams, calories, protein, carbs, fat, meal_type, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare meal insert: %w", err)
	}
	defer stmt.Close()

	synced := 0
	for _, m := range batch {
		res, err := stmt.ExecContext(ctx, userID, m.FoodID, m.FoodName, m.Emoji, m.Grams,
			m.Calories, m.Protein, m.Carbs, m.Fat, m.MealType, database.FormatTime(m.Timestamp))
		if err != nil {
			return 0, fmt.Errorf("failed to insert meal %s: %w", m.FoodID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read insert result: %w", err)
		}
		synced += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit meals: %w", err)
	}
	return synced, nil
}

// List returns the user's meals inside the range, newest first.
func (r *Repository) List(ctx context.Context, userID int64, rng Range) ([]Meal, error) {
	query := `
		SELECT id, food_id, food_name, emoji, grams, calories, protein, carbs, fat, meal_type, logged_at
		FROM logged_meals WHERE user_id = ?`
	args := []any{userID}
	if !rng.From.IsZero() {
		query += ` AND logged_at >= ?`
		args = append(args, database.FormatTime(rng.From))
	}
	if !rng.To.IsZero() {
		query += ` AND logged_at <= ?`
		args = append(args, database.FormatTime(rng.To))
	}
	query += ` ORDER BY logged_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals for user %d: %w", userID, err)
	}
	defer rows.Close()

	result := []Meal{}
	for rows.Next() {
		var (
			m        Meal
			id       int64
			loggedAt string
		)
		if err := rows.Scan(&id, &m.FoodID, &m.FoodName, &m.Emoji, &m.Grams, &m.Calories,
			&m.Protein, &m.Carbs, &m.Fat, &m.MealType, &loggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		m.ID = strconv.FormatInt(id, 10)
		if m.Timestamp, err = database.ParseTime(loggedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// Delete removes one of the user's meals.
func (r *Repository) Delete(ctx context.Context, userID, mealID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logged_meals WHERE id = ? AND user_id = ?`, mealID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete meal %d: %w", mealID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Totals sums the macros the user logged inside the range.
func (r *Repository) Totals(ctx context.Context, userID int64, rng Range) (catalog.Nutrition, error) {
	var n catalog.Nutrition
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(calories), 0.0), COALESCE(SUM(protein), 0.0), COALESCE(SUM(carbs), 0.0), COALESCE(SUM(fat), 0.0)
		FROM logged_meals
		WHERE user_id = ? AND logged_at >= ? AND logged_at < ?`,
		userID, database.FormatTime(rng.From), database.FormatTime(rng.To),
	).Scan(&n.Calories, &n.Protein, &n.Carbs, &n.Fat)
	if err != nil {
		return catalog.Nutrition{}, fmt.Errorf("failed to total meals for user %d: %w", userID, err)
	}
	return n, nil
}

// Day returns the calendar day containing t in t's location.
func Day(t time.Time) Range {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Range{From: start, To: start.AddDate(0, 0, 1)}
}
