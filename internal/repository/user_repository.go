package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/zfogg/vlogbook/backend/internal/database"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles all database operations for user accounts
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, userIDs []string) ([]models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAvatar(ctx context.Context, userID, avatar string) error
	DeleteUser(ctx context.Context, userID string) error
	CountUsers(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser inserts a new account. Username, email and phone collisions become
// validation errors naming the offending field.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return apperrors.BadRequest("user is required")
	}
	if err := r.checkTaken(ctx, user); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Create(user).Error
	if database.IsUniqueViolation(err) {
		// Lost a race with a concurrent registration; re-check to name the field.
		if takenErr := r.checkTaken(ctx, user); takenErr != nil {
			return takenErr
		}
		return apperrors.ValidationError("username", "a user with this username already exists")
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) checkTaken(ctx context.Context, user *models.User) error {
	type uniqueCheck struct {
		field string
		query string
		value any
	}
	checks := []uniqueCheck{
		{"email", "LOWER(email) = LOWER(?)", user.Email},
		{"username", "username = ?", user.Username},
	}
	if user.PhoneNumber != nil && *user.PhoneNumber != "" {
		checks = append(checks, uniqueCheck{"phone_number", "phone_number = ?", *user.PhoneNumber})
	}
	for _, c := range checks {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.User{}).Where(c.query, c.value).Count(&count).Error; err != nil {
			return fmt.Errorf("check %s: %w", c.field, err)
		}
		if count > 0 {
			return apperrors.ValidationError(c.field, fmt.Sprintf("a user with this %s already exists", strings.ReplaceAll(c.field, "_", " ")))
		}
	}
	return nil
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetUsers loads users by id, preserving the order of userIDs
func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]models.User, 0, len(users))
	for _, id := range userIDs {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

func (r *userRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.update(ctx, userID, "password_hash", passwordHash)
}

func (r *userRepository) UpdateAvatar(ctx context.Context, userID, avatar string) error {
	return r.update(ctx, userID, "avatar", avatar)
}

func (r *userRepository) update(ctx context.Context, userID, column string, value any) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("update user %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

// DeleteUser removes the account row with its profile and reset codes.
// Relationships, engagement and content are removed by their own stores first.
func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", userID).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("user")
		}
		return nil
	})
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
