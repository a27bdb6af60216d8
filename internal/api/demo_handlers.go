package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-nutrition/internal/metabolic"
)

type calculateBMRRequest struct {
	WeightKG          float64          `json:"weight_kg"`
	HeightCM          float64          `json:"height_cm"`
	Age               int              `json:"age"`
	Gender            metabolic.Gender `json:"gender"`
	BodyFatPercentage *float64         `json:"body_fat_percentage"`
}

func (r calculateBMRRequest) validate() error {
	if r.WeightKG <= 30 || r.WeightKG >= 300 {
		return fmt.Errorf("weight_kg must be between 30 and 300")
	}
	if r.HeightCM <= 100 || r.HeightCM >= 250 {
		return fmt.Errorf("height_cm must be between 100 and 250")
	}
	if r.Age <= 10 || r.Age >= 120 {
		return fmt.Errorf("age must be between 10 and 120")
	}
	if r.BodyFatPercentage != nil && (*r.BodyFatPercentage <= 3 || *r.BodyFatPercentage >= 60) {
		return fmt.Errorf("body_fat_percentage must be between 3 and 60")
	}
	switch r.Gender {
	case metabolic.Male, metabolic.Female, metabolic.Other:
		return nil
	}
	return fmt.Errorf("unknown gender %q", r.Gender)
}

type calculateProfileRequest struct {
	Gender            metabolic.Gender        `json:"gender"`
	DateOfBirth       string                  `json:"date_of_birth"`
	HeightCM          float64                 `json:"height_cm"`
	CurrentWeightKG   float64                 `json:"current_weight_kg"`
	BodyFatPercentage *float64                `json:"body_fat_percentage"`
	TargetWeightKG    *float64                `json:"target_weight_kg"`
	ActivityLevel     metabolic.ActivityLevel `json:"activity_level"`
	Goal              metabolic.Goal          `json:"goal"`
}

func (s *Server) calculateBMR(c *gin.Context) {
	var req calculateBMRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	bmr, method := metabolic.EstimateBMR(req.WeightKG, req.HeightCM, req.Age, req.Gender, req.BodyFatPercentage)
	c.JSON(http.StatusOK, gin.H{
		"bmr":            metabolic.Round1(bmr),
		"method":         method,
		"tdee_estimates": metabolic.TDEEEstimates(bmr),
	})
}

func (s *Server) calculateProfile(c *gin.Context) {
	var req calculateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "date_of_birth must be YYYY-MM-DD")
		return
	}

	body := metabolic.Body{
		Gender:         req.Gender,
		DateOfBirth:    dob,
		HeightCM:       req.HeightCM,
		WeightKG:       req.CurrentWeightKG,
		BodyFatPercent: req.BodyFatPercentage,
		TargetWeightKG: req.TargetWeightKG,
		ActivityLevel:  req.ActivityLevel,
		Goal:           req.Goal,
	}
	if err := body.Validate(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	now := s.now()
	p := metabolic.Calculate(body, now)
	resp := gin.H{
		"user_profile": gin.H{
			"age":            body.Age(now),
			"gender":         body.Gender,
			"height_cm":      body.HeightCM,
			"weight_kg":      body.WeightKG,
			"bmi":            metabolic.Round1(body.BMI()),
			"goal":           body.Goal,
			"activity_level": body.ActivityLevel,
		},
		"bmr":                p.BMR,
		"tdee":               p.TDEE,
		"target_calories":    p.TargetCalories,
		"target_protein_g":   p.TargetProteinG,
		"target_carbs_g":     p.TargetCarbsG,
		"target_fat_g":       p.TargetFatG,
		"macro_percentages":  p.MacroPercentages,
		"calculation_method": p.CalculationMethod,
	}
	if body.TargetWeightKG != nil {
		deficit := p.TargetCalories - int(math.Round(p.TDEE))
		resp["days_to_target_weight"] = metabolic.WeightLossDays(body.WeightKG, *body.TargetWeightKG, deficit)
	}
	c.JSON(http.StatusOK, resp)
}
