package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/users"
	pkgAuth "github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/auth/session"
	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	RequestOTP(ctx context.Context, userID uuid.UUID, req OTPRequest) (*OTPIssued, error)
	VerifyOTP(ctx context.Context, userID uuid.UUID, req OTPVerifyRequest) (*users.UserDTO, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkPhoneVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type storeLookup interface {
	FindByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Store, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error)
	Revoke(ctx context.Context, accessID string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type otpStore interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	Verify(ctx context.Context, phone, code string) error
}

type service struct {
	users     userRepository
	stores    storeLookup
	session   sessionManager
	limiter   rateLimiter
	otp       otpStore
	jwtCfg    config.JWTConfig
	rateCfg   config.AuthRateLimitConfig
	otpCfg    config.OTPConfig
	exposeOTP bool
	logg      *logger.Logger
	now       func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo        userRepository
	StoreRepo       storeLookup
	SessionManager  sessionManager
	RateLimiter     rateLimiter
	OTPStore        otpStore
	JWTConfig       config.JWTConfig
	RateLimitConfig config.AuthRateLimitConfig
	OTPConfig       config.OTPConfig
	// ExposeOTP echoes issued codes in the response. Only enabled in dev.
	ExposeOTP bool
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.RateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if params.OTPStore == nil {
		return nil, fmt.Errorf("otp store is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		users:     params.UserRepo,
		stores:    params.StoreRepo,
		session:   params.SessionManager,
		limiter:   params.RateLimiter,
		otp:       params.OTPStore,
		jwtCfg:    params.JWTConfig,
		rateCfg:   params.RateLimitConfig,
		otpCfg:    params.OTPConfig,
		exposeOTP: params.ExposeOTP,
		logg:      params.Logger,
		now:       params.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err := s.allow(ctx, "login:"+email, s.rateCfg.LoginEmailLimit, s.rateCfg.LoginWindow); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.issue(ctx, user, accessID, refreshToken, now)
}

// Refresh rotates the refresh session bound to the (possibly expired) access
// token and mints a new pair. Role and store are re-read so a demoted seller
// loses store access on the next refresh.
func (s *service) Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*LoginResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	newAccessID, refreshToken, userID, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate refresh token")
	}
	if userID != claims.UserID {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return s.issue(ctx, user, newAccessID, refreshToken, s.now().UTC())
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// issue mints the access token for the user's current role profile.
func (s *service) issue(ctx context.Context, user *models.User, accessID, refreshToken string, now time.Time) (*LoginResponse, error) {
	storeID, err := s.storeFor(ctx, user)
	if err != nil {
		return nil, err
	}
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:  user.ID,
		StoreID: storeID,
		Role:    user.Role,
		JTI:     accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		StoreID:      storeID,
		User:         users.FromModel(user),
	}, nil
}

// storeFor loads the role-specific profile carried in the token. Sellers
// without a store yet get no store claim.
func (s *service) storeFor(ctx context.Context, user *models.User) (*uuid.UUID, error) {
	storeID, err := enums.MatchRole(user.Role, enums.RoleCases[*uuid.UUID]{
		Customer: func() (*uuid.UUID, error) { return nil, nil },
		Seller: func() (*uuid.UUID, error) {
			store, err := s.stores.FindByOwner(ctx, user.ID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller store")
			}
			id := store.ID
			return &id, nil
		},
		Admin: func() (*uuid.UUID, error) { return nil, nil },
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeValidation, "invalid role")
	}
	return storeID, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// allow applies a fixed-window limit. A limiter outage lets the request
// through and is logged.
func (s *service) allow(ctx context.Context, scope string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return nil
	}
	ok, count, err := s.limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "scope", scope), "rate limiter unavailable", err)
		return nil
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later").
			WithDetails(map[string]any{"attempts": count, "retry_after_seconds": int(window.Seconds())})
	}
	return nil
}
