package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smart-nutrition/internal/auth"
)

const userKey = "user"

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.auth.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, session)
	case errors.Is(err, auth.ErrEmailTaken):
		abort(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, auth.ErrUsernameTaken):
		abort(c, http.StatusBadRequest, "Username already taken")
	case errors.Is(err, auth.ErrInvalidInput):
		abort(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Error registering user: %v", err)
		abort(c, http.StatusInternalServerError, "Failed to register user")
	}
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, session)
	case errors.Is(err, auth.ErrInvalidCredentials):
		abort(c, http.StatusUnauthorized, "Incorrect email or password")
	default:
		log.Printf("Error logging in: %v", err)
		abort(c, http.StatusInternalServerError, "Failed to log in")
	}
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// requireUser resolves the bearer token into the current user.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := s.auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		switch {
		case err == nil:
			c.Set(userKey, user)
			c.Next()
		case errors.Is(err, auth.ErrUserNotFound):
			abort(c, http.StatusUnauthorized, "User not found")
		case errors.Is(err, auth.ErrInvalidToken):
			abort(c, http.StatusUnauthorized, "Invalid authentication credentials")
		default:
			log.Printf("Error authenticating request: %v", err)
			abort(c, http.StatusInternalServerError, "Failed to authenticate")
		}
	}
}

func currentUser(c *gin.Context) auth.User {
	return c.MustGet(userKey).(auth.User)
}
