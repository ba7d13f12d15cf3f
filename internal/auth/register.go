package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/db"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/security"
)

const (
	emailConstraint = "users_email_key"
	phoneConstraint = "users_phone_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterService creates accounts. Register accepts customers and sellers;
// RegisterAdmin is only mounted in dev.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	Users          users.Repository
	Tx             txRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	users       users.Repository
	tx          txRunner
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &registerService{
		users:       params.Users,
		tx:          params.Tx,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	switch req.Role {
	case enums.RoleCustomer, enums.RoleSeller:
	case enums.RoleAdmin:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin accounts cannot self-register")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	var phone *string
	if req.Phone != nil {
		if p := strings.TrimSpace(*req.Phone); p != "" {
			phone = &p
		}
	}
	return s.create(ctx, users.CreateUserDTO{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     phone,
		Role:      req.Role,
	}, req.Password)
}

func (s *registerService) RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	return s.create(ctx, users.CreateUserDTO{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      enums.RoleAdmin,
	}, req.Password)
}

func (s *registerService) create(ctx context.Context, dto users.CreateUserDTO, password string) (*users.UserDTO, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	dto.FirstName = strings.TrimSpace(dto.FirstName)
	dto.LastName = strings.TrimSpace(dto.LastName)
	switch {
	case dto.Email == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case dto.FirstName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	case dto.LastName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "last_name is required")
	case len(password) < 8:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	dto.PasswordHash = passwordHash

	var created *users.UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)

		if _, err := userRepo.FindByEmail(ctx, dto.Email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}
		if dto.Phone != nil {
			if _, err := userRepo.FindByPhone(ctx, *dto.Phone); err == nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user phone")
			}
		}

		user, err := userRepo.Create(ctx, dto)
		if err != nil {
			switch {
			case db.IsUniqueViolation(err, emailConstraint):
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			case db.IsUniqueViolation(err, phoneConstraint):
				return pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "register user")
	}
	return created, nil
}
