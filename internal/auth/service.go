// Package auth is the identity provider: registration, JWT login and refresh,
// one-time-code password resets, and the gin middleware that resolves callers.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/zfogg/vlogbook/backend/internal/email"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Config controls token lifetimes and reset mail branding
type Config struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetCodeTTL    time.Duration
	ProductName     string
	ProductLink     string
}

func (c *Config) setDefaults() {
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 24 * time.Hour
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.ResetCodeTTL == 0 {
		c.ResetCodeTTL = 10 * time.Minute
	}
	if c.ProductName == "" {
		c.ProductName = "Vlogbook"
	}
}

// Service handles all authentication operations
type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	bus      *events.Bus
	notifier email.Notifier
	renderer *email.ResetRenderer
	cfg      Config
	secret   []byte
	now      func() time.Time
}

// NewService creates a new authentication service
func NewService(db *gorm.DB, users repository.UserRepository, bus *events.Bus, notifier email.Notifier, cfg Config) *Service {
	cfg.setDefaults()
	return &Service{
		db:       db,
		users:    users,
		bus:      bus,
		notifier: notifier,
		renderer: email.NewResetRenderer(cfg.ProductName, cfg.ProductLink),
		cfg:      cfg,
		secret:   []byte(cfg.JWTSecret),
		now:      time.Now,
	}
}

// RegisterRequest is the registration form
type RegisterRequest struct {
	Username  string `json:"username" form:"username" binding:"required,username"`
	Email     string `json:"email" form:"email" binding:"required"`
	Password  string `json:"password" form:"password" binding:"required"`
	Password2 string `json:"password2" form:"password2" binding:"required"`
	Avatar    string `json:"avatar" form:"-"`
}

// LoginResult is returned by Login
type LoginResult struct {
	TokenPair
	User *models.User `json:"user"`
}

// Register creates an account and announces it with UserRegistered
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return nil, apperrors.ValidationError("email", "enter a valid email address")
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Password != req.Password2 {
		return nil, apperrors.ValidationError("password2", "password fields didn't match")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Avatar:       req.Avatar,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		recordAuth("register", err)
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.UserRegisteredEvent{UserID: user.ID, Avatar: user.Avatar}); err != nil {
		logger.ErrorWithFields("Post-registration handlers failed", err, logger.WithUserID(user.ID))
	}

	recordAuth("register", nil)
	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login checks a username and password and issues a token pair
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	invalid := apperrors.Unauthorized("no active account found with the given credentials")

	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if apperrors.Is(err, apperrors.ErrNotFound) {
		// Burn the same time as a real comparison
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		recordAuth("login", invalid)
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil || !user.IsActive {
		recordAuth("login", invalid)
		return nil, invalid
	}

	pair, err := s.issuePair(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens", err)
	}
	recordAuth("login", nil)
	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// Refresh exchanges a refresh token for a new pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, TokenRefresh)
	if err != nil {
		recordAuth("refresh", err)
		return nil, apperrors.Unauthorized("token is invalid or expired")
	}

	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil || !user.IsActive {
		recordAuth("refresh", apperrors.Unauthorized(""))
		return nil, apperrors.Unauthorized("token is invalid or expired")
	}

	pair, err := s.issuePair(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens", err)
	}
	recordAuth("refresh", nil)
	return pair, nil
}

// ValidateToken verifies an access token and returns the user id it was issued for.
// Tokens of deleted or deactivated accounts are rejected.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parse(tokenString, TokenAccess)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", errors.New("user no longer exists")
		}
		return "", err
	}
	if !user.IsActive {
		return "", errors.New("account is disabled")
	}
	return user.ID, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Internal("failed to hash password", err)
	}
	return string(hash), nil
}

// dummyHash is compared against when the username does not exist
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-password"), bcrypt.MinCost)

func recordAuth(event string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.Get().App.AuthEventsTotal.WithLabelValues(event, status).Inc()
}
