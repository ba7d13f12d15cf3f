package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/otp"
	"github.com/librisvault/librisvault-backend/pkg/security"
)

// RequestOTP issues a phone verification code for the signed-in user.
func (s *service) RequestOTP(ctx context.Context, userID uuid.UUID, req OTPRequest) (*OTPIssued, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if err := s.allow(ctx, "otp:"+phone, s.rateCfg.OTPPhoneLimit, s.rateCfg.OTPWindow); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Phone == nil || *user.Phone != phone {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone does not match the account")
	}

	code, err := security.GenerateNumericCode(s.otpCfg.Length)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	if err := s.otp.Save(ctx, phone, code, s.otpCfg.TTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store otp")
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", userID.String()), "otp issued")

	issued := &OTPIssued{ExpiresInSeconds: int(s.otpCfg.TTL.Seconds())}
	if s.exposeOTP {
		issued.DevCode = code
	}
	return issued, nil
}

func (s *service) VerifyOTP(ctx context.Context, userID uuid.UUID, req OTPVerifyRequest) (*users.UserDTO, error) {
	phone := strings.TrimSpace(req.Phone)
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Phone == nil || *user.Phone != phone {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone does not match the account")
	}

	if err := s.otp.Verify(ctx, phone, strings.TrimSpace(req.Code)); err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeNotFound), errors.Is(err, otp.ErrCodeMismatch):
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired code")
		case errors.Is(err, otp.ErrTooManyAttempts):
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, request a new code")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify otp")
		}
	}

	now := s.now().UTC()
	if err := s.users.MarkPhoneVerified(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark phone verified")
	}
	user.PhoneVerifiedAt = &now
	return users.FromModel(user), nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
