package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smart-nutrition/internal/meals"
	"smart-nutrition/internal/metabolic"
	"smart-nutrition/internal/profile"
)

type syncProfileRequest struct {
	Profile          profile.Profile    `json:"profile"`
	MetabolicProfile *profile.Metabolic `json:"metabolicProfile"`
}

type profileResponse struct {
	Profile          *profile.Profile   `json:"profile"`
	MetabolicProfile *profile.Metabolic `json:"metabolicProfile"`
}

type syncMealsRequest struct {
	Meals []meals.Meal `json:"meals"`
}

type syncMealsResponse struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
}

// syncProfile stores the profile. When the client sends no metabolic
// profile it is calculated from the body data.
func (s *Server) syncProfile(c *gin.Context) {
	var req syncProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	m := req.MetabolicProfile
	if m == nil {
		body, err := req.Profile.Body()
		if err != nil {
			abort(c, http.StatusBadRequest, fmt.Sprintf("Cannot calculate metabolic profile: %v", err))
			return
		}
		calculated := profile.FromCalculation(metabolic.Calculate(body, s.now()))
		m = &calculated
	}

	user := currentUser(c)
	if err := s.profiles.Save(c.Request.Context(), user.ID, req.Profile, *m); err != nil {
		log.Printf("Error syncing profile for user %d: %v", user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to sync profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile synced successfully"})
}

func (s *Server) getProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	var resp profileResponse

	p, err := s.profiles.GetProfile(ctx, user.ID)
	switch {
	case err == nil:
		resp.Profile = &p
	case !errors.Is(err, profile.ErrNotFound):
		log.Printf("Error loading profile for user %d: %v", user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	m, err := s.profiles.GetMetabolic(ctx, user.ID)
	switch {
	case err == nil:
		resp.MetabolicProfile = &m
	case !errors.Is(err, profile.ErrNotFound):
		log.Printf("Error loading metabolic profile for user %d: %v", user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) syncMeals(c *gin.Context) {
	var req syncMealsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, m := range req.Meals {
		if err := m.Validate(); err != nil {
			abort(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	user := currentUser(c)
	synced, err := s.meals.SaveBatch(c.Request.Context(), user.ID, req.Meals)
	if err != nil {
		log.Printf("Error syncing meals for user %d: %v", user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to sync meals")
		return
	}
	c.JSON(http.StatusOK, syncMealsResponse{Success: true, Synced: synced})
}

func (s *Server) getMeals(c *gin.Context) {
	var rng meals.Range
	var err error
	if v := c.Query("from_date"); v != "" {
		if rng.From, err = parseDate(v); err != nil {
			abort(c, http.StatusBadRequest, "Invalid from_date")
			return
		}
	}
	if v := c.Query("to_date"); v != "" {
		if rng.To, err = parseDate(v); err != nil {
			abort(c, http.StatusBadRequest, "Invalid to_date")
			return
		}
	}

	user := currentUser(c)
	list, err := s.meals.List(c.Request.Context(), user.ID, rng)
	if err != nil {
		log.Printf("Error listing meals for user %d: %v", user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to load meals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": list})
}

func (s *Server) deleteMeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "Invalid meal id")
		return
	}

	user := currentUser(c)
	err = s.meals.Delete(c.Request.Context(), user.ID, id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, syncMealsResponse{Success: true, Synced: 1})
	case errors.Is(err, meals.ErrNotFound):
		abort(c, http.StatusNotFound, "Meal not found")
	default:
		log.Printf("Error deleting meal %d for user %d: %v", id, user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to delete meal")
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339, a zone-less timestamp or a plain date. Values
// without a zone are read as UTC.
func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
