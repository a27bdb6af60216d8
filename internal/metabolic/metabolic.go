package metabolic

import (
	"fmt"
	"math"
	"time"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
	Other  Gender = "other"
)

type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very_active"
)

// ActivityLevels lists every level in increasing order of activity.
var ActivityLevels = []ActivityLevel{Sedentary, Light, Moderate, Active, VeryActive}

type Goal string

const (
	Cutting     Goal = "cutting"
	Maintenance Goal = "maintenance"
	Bulking     Goal = "bulking"
)

// Calculation methods reported in a Profile.
const (
	MethodMifflinStJeor = "mifflin_st_jeor"
	MethodKatchMcArdle  = "katch_mcardle"
)

// KcalPerKgFat is the energy stored in one kilogram of body fat.
const KcalPerKgFat = 7700.0

var activityMultipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	Active:     1.725,
	VeryActive: 1.9,
}

var goalAdjustments = map[Goal]float64{
	Cutting:     -0.20,
	Maintenance: 0,
	Bulking:     0.10,
}

// grams of protein per kg of body weight
var proteinPerKg = map[Goal]float64{
	Cutting:     2.2,
	Maintenance: 1.8,
	Bulking:     2.0,
}

const (
	fatPerKg     = 0.8
	minCarbsG    = 50.0
	kcalPerGProt = 4.0
	kcalPerGCarb = 4.0
	kcalPerGFat  = 9.0
)

// Body is the anthropometric data needed for the calculations.
type Body struct {
	Gender         Gender        `json:"gender"`
	DateOfBirth    time.Time     `json:"date_of_birth"`
	HeightCM       float64       `json:"height_cm"`
	WeightKG       float64       `json:"current_weight_kg"`
	BodyFatPercent *float64      `json:"body_fat_percentage,omitempty"`
	TargetWeightKG *float64      `json:"target_weight_kg,omitempty"`
	ActivityLevel  ActivityLevel `json:"activity_level"`
	Goal           Goal          `json:"goal"`
}

// Validate checks the ranges accepted for height, weight and body fat, and
// that the enum fields are known values.
func (b Body) Validate() error {
	if b.HeightCM < 100 || b.HeightCM > 250 {
		return fmt.Errorf("height must be between 100 and 250 cm")
	}
	if b.WeightKG < 30 || b.WeightKG > 300 {
		return fmt.Errorf("weight must be between 30 and 300 kg")
	}
	if b.BodyFatPercent != nil && (*b.BodyFatPercent < 3 || *b.BodyFatPercent > 60) {
		return fmt.Errorf("body fat percentage must be between 3 and 60%%")
	}
	if b.TargetWeightKG != nil && (*b.TargetWeightKG < 30 || *b.TargetWeightKG > 300) {
		return fmt.Errorf("target weight must be between 30 and 300 kg")
	}
	switch b.Gender {
	case Male, Female, Other:
	default:
		return fmt.Errorf("unknown gender %q", b.Gender)
	}
	if _, ok := activityMultipliers[b.ActivityLevel]; !ok {
		return fmt.Errorf("unknown activity level %q", b.ActivityLevel)
	}
	if _, ok := goalAdjustments[b.Goal]; !ok {
		return fmt.Errorf("unknown goal %q", b.Goal)
	}
	return nil
}

// BMI is the body mass index, kg/m².
func (b Body) BMI() float64 {
	m := b.HeightCM / 100
	if m <= 0 {
		return 0
	}
	return b.WeightKG / (m * m)
}

// Age returns the age in whole years at the given time.
func (b Body) Age(at time.Time) int {
	return Age(b.DateOfBirth, at)
}

// Age returns full years elapsed between dob and at.
func Age(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	return years
}

// Profile is the calculated daily energy budget.
type Profile struct {
	BMR               float64          `json:"bmr"`
	TDEE              float64          `json:"tdee"`
	TargetCalories    int              `json:"target_calories"`
	TargetProteinG    float64          `json:"target_protein_g"`
	TargetCarbsG      float64          `json:"target_carbs_g"`
	TargetFatG        float64          `json:"target_fat_g"`
	MacroPercentages  MacroPercentages `json:"macro_percentages"`
	CalculationMethod string           `json:"calculation_method"`
}

// MacroPercentages is the share of target calories from each macro.
type MacroPercentages struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// BMRMifflinStJeor estimates basal metabolic rate from weight, height and age.
// Anything other than Male uses the female constant.
func BMRMifflinStJeor(weightKG, heightCM float64, age int, gender Gender) float64 {
	base := 10*weightKG + 6.25*heightCM - 5*float64(age)
	if gender == Male {
		return base + 5
	}
	return base - 161
}

// BMRKatchMcArdle estimates basal metabolic rate from lean body mass.
func BMRKatchMcArdle(weightKG, bodyFatPct float64) float64 {
	lean := weightKG * (1 - bodyFatPct/100)
	return 370 + 21.6*lean
}

// TDEE scales the BMR by the activity multiplier. Unknown levels are treated
// as sedentary.
func TDEE(bmr float64, level ActivityLevel) float64 {
	m, ok := activityMultipliers[level]
	if !ok {
		m = activityMultipliers[Sedentary]
	}
	return bmr * m
}

// AdjustForGoal applies the goal's deficit or surplus and rounds half to
// even to whole kcal.
func AdjustForGoal(tdee float64, goal Goal) int {
	return int(math.RoundToEven(tdee * (1 + goalAdjustments[goal])))
}

// MacroTargets splits target calories into protein, carbs and fat grams.
// Protein and fat come from body weight, carbs take what is left with a 50g floor.
func MacroTargets(targetCalories int, weightKG float64, goal Goal) (proteinG, carbsG, fatG float64) {
	perKg, ok := proteinPerKg[goal]
	if !ok {
		perKg = proteinPerKg[Maintenance]
	}
	proteinG = weightKG * perKg
	fatG = weightKG * fatPerKg

	left := float64(targetCalories) - proteinG*kcalPerGProt - fatG*kcalPerGFat
	carbsG = math.Max(minCarbsG, left/kcalPerGCarb)

	return Round1(proteinG), Round1(carbsG), Round1(fatG)
}

// EstimateBMR picks Katch-McArdle when the body fat percentage is known and
// Mifflin-St Jeor otherwise. It returns the BMR and the method used.
func EstimateBMR(weightKG, heightCM float64, age int, gender Gender, bodyFatPct *float64) (float64, string) {
	if bodyFatPct != nil {
		return BMRKatchMcArdle(weightKG, *bodyFatPct), MethodKatchMcArdle
	}
	return BMRMifflinStJeor(weightKG, heightCM, age, gender), MethodMifflinStJeor
}

// TDEEEstimates returns the TDEE for every activity level, keyed by level.
func TDEEEstimates(bmr float64) map[string]float64 {
	out := make(map[string]float64, len(ActivityLevels))
	for _, level := range ActivityLevels {
		out[string(level)] = Round1(TDEE(bmr, level))
	}
	return out
}

// Calculate builds the full profile for the body as of at.
func Calculate(b Body, at time.Time) Profile {
	bmr, method := EstimateBMR(b.WeightKG, b.HeightCM, b.Age(at), b.Gender, b.BodyFatPercent)
	tdee := TDEE(bmr, b.ActivityLevel)
	target := AdjustForGoal(tdee, b.Goal)
	protein, carbs, fat := MacroTargets(target, b.WeightKG, b.Goal)

	p := Profile{
		BMR:               Round1(bmr),
		TDEE:              Round1(tdee),
		TargetCalories:    target,
		TargetProteinG:    protein,
		TargetCarbsG:      carbs,
		TargetFatG:        fat,
		CalculationMethod: method,
	}
	if target > 0 {
		total := float64(target)
		p.MacroPercentages = MacroPercentages{
			Protein: Round1(protein * kcalPerGProt / total * 100),
			Carbs:   Round1(carbs * kcalPerGCarb / total * 100),
			Fat:     Round1(fat * kcalPerGFat / total * 100),
		}
	}
	return p
}

// WeightLossDays estimates how many days a daily deficit needs to reach the
// target weight, rounding half to even. It is 0 when there is nothing to lose
// or no deficit.
func WeightLossDays(currentKG, targetKG float64, dailyDeficit int) int {
	toLose := currentKG - targetKG
	if toLose <= 0 || dailyDeficit == 0 {
		return 0
	}
	days := toLose * KcalPerKgFat / math.Abs(float64(dailyDeficit))
	return int(math.RoundToEven(days))
}

// Round1 rounds half to even to one decimal place.
func Round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
