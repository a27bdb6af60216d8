package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("invalid authentication credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// Users is the persistence the service needs.
type Users interface {
	Create(ctx context.Context, email, username, passwordHash string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}

// Service registers users, checks their passwords and resolves tokens.
type Service struct {
	users  Users
	tokens *TokenIssuer
	cost   int
}

// NewService creates a Service using the default bcrypt cost.
func NewService(users Users, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Session is a user together with a freshly issued access token.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, email, username, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return Session{}, fmt.Errorf("%w: username must be between 3 and 50 characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < 6 {
		return Session{}, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return Session{}, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return Session{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, username, string(hash))
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return User{}, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *Service) session(user User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, TokenType: "bearer", User: user}, nil
}
