package auth

import (
	"github.com/angelmondragon/vendorportal/internal/session"
	"github.com/angelmondragon/vendorportal/pkg/types"
)

// LoginRequest captures the vendor credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the vendor sign-up form.
type RegisterRequest struct {
	BusinessName string `json:"businessName" validate:"required,min=2,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Category     string `json:"category,omitempty" validate:"omitempty,max=60"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdateProfileRequest patches the vendor profile; nil fields are left untouched.
type UpdateProfileRequest struct {
	BusinessName *string `json:"businessName,omitempty" validate:"omitempty,min=2,max=120"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	LogoURL      *string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=300"`
}

// SessionResult is a successful authentication: the tokens to store in cookies,
// the upstream body with the tokens removed and the vendor profile when the
// backend included one.
type SessionResult struct {
	Status int
	Tokens session.Tokens
	Body   []byte
	Vendor *types.Vendor
}
