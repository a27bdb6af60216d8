package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart-nutrition/internal/database"
	"smart-nutrition/internal/metabolic"
	"smart-nutrition/internal/optimizer"
)

// ErrNotFound is returned when a user has not synced the requested record yet.
var ErrNotFound = errors.New("profile not found")

const birthDateLayout = "2006-01-02"

// Profile is the user's self-reported data as the client app syncs it.
type Profile struct {
	Name              string   `json:"name"`
	Gender            string   `json:"gender"`
	BirthDate         string   `json:"birthDate"`
	CurrentWeightKg   *float64 `json:"currentWeightKg"`
	HeightCm          *float64 `json:"heightCm"`
	BodyFatPercentage *float64 `json:"bodyFatPercentage"`
	Goal              string   `json:"goal"`
	ActivityLevel     string   `json:"activityLevel"`
	DietType          string   `json:"dietType"`
	Restrictions      []string `json:"restrictions"`
	TargetWeightKg    *float64 `json:"targetWeightKg"`
	TargetDate        string   `json:"targetDate"`
	MealsPerDay       *int     `json:"mealsPerDay"`
	CookingTime       *int     `json:"cookingTime"`
	ExperienceLevel   string   `json:"experienceLevel"`
	Motivation        string   `json:"motivation"`
}

// Body converts the profile into calculator input. It fails when a field
// the calculation needs is missing or out of range.
func (p Profile) Body() (metabolic.Body, error) {
	if p.CurrentWeightKg == nil || p.HeightCm == nil {
		return metabolic.Body{}, fmt.Errorf("weight and height are required")
	}
	dob, err := time.Parse(birthDateLayout, p.BirthDate)
	if err != nil {
		return metabolic.Body{}, fmt.Errorf("invalid birth date %q", p.BirthDate)
	}

	b := metabolic.Body{
		Gender:         metabolic.Gender(p.Gender),
		DateOfBirth:    dob,
		HeightCM:       *p.HeightCm,
		WeightKG:       *p.CurrentWeightKg,
		BodyFatPercent: p.BodyFatPercentage,
		TargetWeightKG: p.TargetWeightKg,
		ActivityLevel:  metabolic.ActivityLevel(p.ActivityLevel),
		Goal:           metabolic.Goal(p.Goal),
	}
	if err := b.Validate(); err != nil {
		return metabolic.Body{}, err
	}
	return b, nil
}

// Metabolic is the stored result of the metabolic calculation.
type Metabolic struct {
	BMR               float64            `json:"bmr"`
	TDEE              float64            `json:"tdee"`
	TargetCalories    int                `json:"targetCalories"`
	TargetProteinG    float64            `json:"targetProteinG"`
	TargetCarbsG      float64            `json:"targetCarbsG"`
	TargetFatG        float64            `json:"targetFatG"`
	CalculationMethod string             `json:"calculationMethod"`
	MacroPercentages  map[string]float64 `json:"macroPercentages"`
}

// FromCalculation converts a calculator result into its stored form.
func FromCalculation(p metabolic.Profile) Metabolic {
	return Metabolic{
		BMR:               p.BMR,
		TDEE:              p.TDEE,
		TargetCalories:    p.TargetCalories,
		TargetProteinG:    p.TargetProteinG,
		TargetCarbsG:      p.TargetCarbsG,
		TargetFatG:        p.TargetFatG,
		CalculationMethod: p.CalculationMethod,
		MacroPercentages: map[string]float64{
			"protein": p.MacroPercentages.Protein,
			"carbs":   p.MacroPercentages.Carbs,
			"fat":     p.MacroPercentages.Fat,
		},
	}
}

// Target returns the daily goal as an optimizer target.
func (m Metabolic) Target() optimizer.MacroTarget {
	return optimizer.MacroTarget{
		Calories: float64(m.TargetCalories),
		ProteinG: m.TargetProteinG,
		CarbsG:   m.TargetCarbsG,
		FatG:     m.TargetFatG,
	}
}

// Repository stores one profile and one metabolic profile per user.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save upserts both records for the user in a single transaction.
func (r *Repository) Save(ctx context.Context, userID int64, p Profile, m Metabolic) error {
	restrictions := p.Restrictions
	if restrictions == nil {
		restrictions = []string{}
	}
	restrictionsJSON, err := json.Marshal(restrictions)
	if err != nil {
		return fmt.Errorf("failed to encode restrictions: %w", err)
	}
	percentagesJSON, err := json.Marshal(m.MacroPercentages)
	if err != nil {
		return fmt.Errorf("failed to encode macro percentages: %w", err)
	}
	now := database.FormatTime(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_profiles (
			user_id, name, gender, birth_date, current_weight_kg, height_cm, body_fat_percentage,
			goal, activity_level, diet_type, restrictions, target_weight_kg, target_date,
			meals_per_day, cooking_time, experience_level, motivation, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			gender = excluded.gender,
			birth_date = excluded.birth_date,
			current_weight_kg = excluded.current_weight_kg,
			height_cm = excluded.height_cm,
			body_fat_percentage = excluded.body_fat_percentage,
			goal = excluded.goal,
			activity_level = excluded.activity_level,
			diet_type = excluded.diet_type,
			restrictions = excluded.restrictions,
			target_weight_kg = excluded.target_weight_kg,
			target_date = excluded.target_date,
			meals_per_day = excluded.meals_per_day,
			cooking_time = excluded.cooking_time,
			experience_level = excluded.experience_level,
			motivation = excluded.motivation,
			updated_at = excluded.updated_at`,
		userID, p.Name, p.Gender, p.BirthDate, p.CurrentWeightKg, p.HeightCm, p.BodyFatPercentage,
		p.Goal, p.ActivityLevel, p.DietType, string(restrictionsJSON), p.TargetWeightKg, p.TargetDate,
		p.MealsPerDay, p.CookingTime, p.ExperienceLevel, p.Motivation, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile for user %d: %w", userID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metabolic_profiles (
			user_id, bmr, tdee, target_calories, target_protein_g, target_carbs_g, target_fat_g,
			calculation_method, macro_percentages, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			bmr = excluded.bmr,
			tdee = excluded.tdee,
			target_calories = excluded.target_calories,
			target_protein_g = excluded.target_protein_g,
			target_carbs_g = excluded.target_carbs_g,
			target_fat_g = excluded.target_fat_g,
			calculation_method = excluded.calculation_method,
			macro_percentages = excluded.macro_percentages,
			updated_at = excluded.updated_at`,
		userID, m.BMR, m.TDEE, m.TargetCalories, m.TargetProteinG, m.TargetCarbsG, m.TargetFatG,
		m.CalculationMethod, string(percentagesJSON), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save metabolic profile for user %d: %w", userID, err)
	}

	return tx.Commit()
}

// GetProfile returns the user's profile or ErrNotFound.
func (r *Repository) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	var (
		p            Profile
		name         sql.NullString
		gender       sql.NullString
		birthDate    sql.NullString
		goal         sql.NullString
		activity     sql.NullString
		dietType     sql.NullString
		targetDate   sql.NullString
		experience   sql.NullString
		motivation   sql.NullString
		weight       sql.NullFloat64
		height       sql.NullFloat64
		bodyFat      sql.NullFloat64
		targetWeight sql.NullFloat64
		mealsPerDay  sql.NullInt64
		cookingTime  sql.NullInt64
		restrictions string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT name, gender, birth_date, current_weight_kg, height_cm, body_fat_percentage,
		       goal, activity_level, diet_type, restrictions, target_weight_kg, target_date,
		       meals_per_day, cooking_time, experience_level, motivation
		FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&name, &gender, &birthDate, &weight, &height, &bodyFat,
		&goal, &activity, &dietType, &restrictions, &targetWeight, &targetDate,
		&mealsPerDay, &cookingTime, &experience, &motivation)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to load profile for user %d: %w", userID, err)
	}

	p.Name = name.String
	p.Gender = gender.String
	p.BirthDate = birthDate.String
	p.Goal = goal.String
	p.ActivityLevel = activity.String
	p.DietType = dietType.String
	p.TargetDate = targetDate.String
	p.ExperienceLevel = experience.String
	p.Motivation = motivation.String
	p.CurrentWeightKg = floatPtr(weight)
	p.HeightCm = floatPtr(height)
	p.BodyFatPercentage = floatPtr(bodyFat)
	p.TargetWeightKg = floatPtr(targetWeight)
	p.MealsPerDay = intPtr(mealsPerDay)
	p.CookingTime = intPtr(cookingTime)

	p.Restrictions = []string{}
	if restrictions != "" {
		if err := json.Unmarshal([]byte(restrictions), &p.Restrictions); err != nil {
			return Profile{}, fmt.Errorf("failed to decode restrictions: %w", err)
		}
	}
	return p, nil
}

// GetMetabolic returns the user's metabolic profile or ErrNotFound.
func (r *Repository) GetMetabolic(ctx context.Context, userID int64) (Metabolic, error) {
	var (
		m           Metabolic
		percentages string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT bmr, tdee, target_calories, target_protein_g, target_carbs_g, target_fat_g,
		       calculation_method, macro_percentages
		FROM metabolic_profiles WHERE user_id = ?`, userID,
	).Scan(&m.BMR, &m.TDEE, &m.TargetCalories, &m.TargetProteinG, &m.TargetCarbsG, &m.TargetFatG,
		&m.CalculationMethod, &percentages)
	if errors.Is(err, sql.ErrNoRows) {
		return Metabolic{}, ErrNotFound
	}
	if err != nil {
		return Metabolic{}, fmt.Errorf("failed to load metabolic profile for user %d: %w", userID, err)
	}

	m.MacroPercentages = map[string]float64{}
	if percentages != "" {
		if err := json.Unmarshal([]byte(percentages), &m.MacroPercentages); err != nil {
			return Metabolic{}, fmt.Errorf("failed to decode macro percentages: %w", err)
		}
	}
	return m, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
