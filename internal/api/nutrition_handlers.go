package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/meals"
	"smart-nutrition/internal/optimizer"
	"smart-nutrition/internal/profile"
	"smart-nutrition/internal/vision"
)

// maxImageBytes caps the uploaded photo size.
const maxImageBytes = 10 << 20

var errNoTargets = errors.New("no metabolic profile synced")

type remainingRequest struct {
	Remaining *optimizer.MacroTarget `json:"remaining"`
}

func (s *Server) analyzeFood(c *gin.Context) {
	if s.analyzer == nil {
		abort(c, http.StatusServiceUnavailable, "Food analysis is not configured")
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		abort(c, http.StatusBadRequest, "Missing image file")
		return
	}
	if fh.Size > maxImageBytes {
		abort(c, http.StatusRequestEntityTooLarge, "Image file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "Cannot read image file")
		return
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		abort(c, http.StatusBadRequest, "Cannot read image file")
		return
	}
	if len(image) == 0 {
		abort(c, http.StatusBadRequest, "Empty image file")
		return
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), image, fh.Header.Get("Content-Type"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, vision.ErrEmptyImage):
		abort(c, http.StatusBadRequest, "Empty image file")
	case errors.Is(err, vision.ErrUnsupportedImage):
		abort(c, http.StatusBadRequest, "File must be an image")
	default:
		log.Printf("Error analyzing food image: %v", err)
		abort(c, http.StatusInternalServerError, "Error analyzing image")
	}
}

func (s *Server) recommendations(c *gin.Context) {
	limit := optimizer.DefaultMaxRecommendations
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 20 {
			abort(c, http.StatusBadRequest, "limit must be between 1 and 20")
			return
		}
		limit = n
	}

	remaining, ok := s.resolveRemaining(c)
	if !ok {
		return
	}

	recs := s.optimizer.RecommendFoods(s.foods.Foods(), remaining, limit)
	if recs == nil {
		recs = []optimizer.FoodRecommendation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"remaining":       remaining,
		"complete":        remaining.IsComplete(),
		"recommendations": recs,
	})
}

func (s *Server) mealCompletion(c *gin.Context) {
	remaining, ok := s.resolveRemaining(c)
	if !ok {
		return
	}

	completion := s.optimizer.SuggestMealCompletion(remaining,
		s.foods.ByCategory(catalog.CategoryProtein),
		s.foods.ByCategory(catalog.CategoryCarbs),
		s.foods.ByCategory(catalog.CategoryFats),
	)
	c.JSON(http.StatusOK, gin.H{
		"remaining":  remaining,
		"suggestion": completion,
	})
}

// resolveRemaining uses the target in the body when present, otherwise the
// user's stored daily targets minus what they logged today (UTC). It writes
// the error response itself and reports whether the handler may go on.
func (s *Server) resolveRemaining(c *gin.Context) (optimizer.MacroTarget, bool) {
	var req remainingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return optimizer.MacroTarget{}, false
	}
	if req.Remaining != nil {
		return *req.Remaining, true
	}

	user := currentUser(c)
	remaining, err := s.remainingToday(c, user.ID)
	switch {
	case err == nil:
		return remaining, true
	case errors.Is(err, errNoTargets):
		abort(c, http.StatusBadRequest, "No metabolic profile synced; send the remaining targets")
	default:
		log.Printf("Error resolving remaining targets for user %d: %v", user.ID, err)
		abort(c, http.StatusInternalServerError, "Failed to load daily targets")
	}
	return optimizer.MacroTarget{}, false
}

func (s *Server) remainingToday(c *gin.Context, userID int64) (optimizer.MacroTarget, error) {
	ctx := c.Request.Context()
	m, err := s.profiles.GetMetabolic(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return optimizer.MacroTarget{}, errNoTargets
	}
	if err != nil {
		return optimizer.MacroTarget{}, err
	}

	eaten, err := s.meals.Totals(ctx, userID, meals.Day(s.now().UTC()))
	if err != nil {
		return optimizer.MacroTarget{}, err
	}
	return m.Target().Subtract(eaten), nil
}
