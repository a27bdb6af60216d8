package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"smart-nutrition/internal/analysis"
	"smart-nutrition/internal/auth"
	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/meals"
	"smart-nutrition/internal/metrics"
	"smart-nutrition/internal/optimizer"
	"smart-nutrition/internal/profile"
)

// FoodAnalyzer turns a meal photo into matched foods.
type FoodAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*analysis.Result, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	auth      *auth.Service
	profiles  *profile.Repository
	meals     *meals.Repository
	foods     *catalog.Catalog
	optimizer *optimizer.Optimizer
	analyzer  FoodAnalyzer
	dataPath  string
	now       func() time.Time
}

// Deps groups what NewServer needs. Analyzer may be nil, in which case the
// analyze endpoint answers 503.
type Deps struct {
	Auth      *auth.Service
	Profiles  *profile.Repository
	Meals     *meals.Repository
	Catalog   *catalog.Catalog
	Optimizer *optimizer.Optimizer
	Analyzer  FoodAnalyzer
	DataPath  string
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	opt := d.Optimizer
	if opt == nil {
		opt = optimizer.New(optimizer.DefaultPortionOptions())
	}
	return &Server{
		auth:      d.Auth,
		profiles:  d.Profiles,
		meals:     d.Meals,
		foods:     d.Catalog,
		optimizer: opt,
		analyzer:  d.Analyzer,
		dataPath:  d.DataPath,
		now:       time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/health", s.health)

	demo := r.Group("/demo")
	{
		demo.POST("/calculate-bmr", s.calculateBMR)
		demo.POST("/calculate-profile", s.calculateProfile)
	}

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.GET("/me", s.requireUser(), s.me)
	}

	sync := r.Group("/api/sync", s.requireUser())
	{
		sync.POST("/profile", s.syncProfile)
		sync.GET("/profile", s.getProfile)
		sync.POST("/meals", s.syncMeals)
		sync.GET("/meals", s.getMeals)
		sync.DELETE("/meals/:id", s.deleteMeal)
	}

	r.POST("/api/analyze-food", s.analyzeFood)

	api := r.Group("/api", s.requireUser())
	{
		api.POST("/recommendations", s.recommendations)
		api.POST("/meal-completion", s.mealCompletion)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"catalog": s.foods.Len(),
		"vision":  s.analyzer != nil,
		"system":  metrics.GetSysHealth(s.dataPath),
	})
}

// abort writes the error body every endpoint uses.
func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
