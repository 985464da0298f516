package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/email"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"gorm.io/gorm"
)

const resetCodePeriod = 600

func (s *Service) otpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    resetCodePeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// RequestPasswordReset mails a one-time code to the account registered under address.
// Earlier unused codes for the same account stop working.
func (s *Service) RequestPasswordReset(ctx context.Context, address string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(address))
	if err != nil {
		return err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.ProductName,
		AccountName: user.Email,
		Period:      resetCodePeriod,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return apperrors.Internal("failed to generate reset secret", err)
	}

	now := s.now()
	code, err := totp.GenerateCodeCustom(key.Secret(), now, s.otpOpts())
	if err != nil {
		return apperrors.Internal("failed to generate reset code", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		Secret:    key.Secret(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.ResetCodeTTL),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND used = ?", user.ID, false).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(reset).Error
	})
	if err != nil {
		return fmt.Errorf("store password reset: %w", err)
	}

	body, err := s.renderer.Render(user.Username, code, s.cfg.ResetCodeTTL)
	if err != nil {
		return apperrors.Internal("failed to render reset email", err)
	}
	if err := s.notifier.Send(ctx, user.Email, email.ResetSubject, body); err != nil {
		recordAuth("reset_request", err)
		logger.ErrorWithFields("Failed to send reset code", err, logger.WithUserID(user.ID))
		return apperrors.ServiceUnavailable("email")
	}

	recordAuth("reset_request", nil)
	logger.Log.Info("Password reset requested", logger.WithUserID(user.ID))
	return nil
}

// CheckCode reports whether code is a live reset code for address
func (s *Service) CheckCode(ctx context.Context, address, code string) error {
	_, _, err := s.activeReset(ctx, address, code)
	return err
}

// ConfirmPassword sets a new password using a live reset code and consumes the code
func (s *Service) ConfirmPassword(ctx context.Context, address, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, reset, err := s.activeReset(ctx, address, code)
	if err != nil {
		recordAuth("reset_confirm", err)
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PasswordReset{}).
			Where("id = ? AND used = ?", reset.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ValidationError("code", "invalid or expired code")
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("password_hash", hash).Error
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrValidation) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}

	recordAuth("reset_confirm", nil)
	logger.Log.Info("Password reset completed", logger.WithUserID(user.ID))
	return nil
}

func (s *Service) activeReset(ctx context.Context, address, code string) (*models.User, *models.PasswordReset, error) {
	invalid := apperrors.ValidationError("code", "invalid or expired code")

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(address))
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	var reset models.PasswordReset
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND used = ? AND expires_at > ?", user.ID, false, now).
		Order("issued_at DESC").
		First(&reset).Error
	if database.IsNotFound(err) {
		return nil, nil, invalid
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load password reset: %w", err)
	}

	valid, err := totp.ValidateCustom(strings.TrimSpace(code), reset.Secret, now, s.otpOpts())
	if err != nil || !valid {
		return nil, nil, invalid
	}
	return user, &reset, nil
}
