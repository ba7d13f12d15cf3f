package auth

import (
	"github.com/google/uuid"

	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest onboards a customer or a seller. Operators are provisioned
// through the dev-only admin flow.
type RegisterRequest struct {
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=8"`
	Phone     *string    `json:"phone,omitempty" validate:"omitempty,e164"`
	Role      enums.Role `json:"role" validate:"required"`
}

// AdminRegisterRequest contains the credentials for the dev-only admin registration flow.
type AdminRegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type OTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type OTPVerifyRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,numeric"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	StoreID      *uuid.UUID     `json:"store_id,omitempty"`
	User         *users.UserDTO `json:"user"`
}

// OTPIssued is returned when a code was sent. DevCode is only set outside production.
type OTPIssued struct {
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	DevCode          string `json:"dev_code,omitempty"`
}
