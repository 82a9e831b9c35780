package dto

import "time"

type SignUpRequest struct {
	FullName        string `json:"fullName" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Country         string `json:"country" validate:"required"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName        *string `json:"displayName" validate:"omitempty,min=2,max=100"`
	Country            *string `json:"country" validate:"omitempty,min=1"`
	NewPassword        *string `json:"newPassword" validate:"omitempty,min=6,max=72"`
	ConfirmNewPassword *string `json:"confirmNewPassword"`
}

type UserDTO struct {
	Id          string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        UserDTO   `json:"user"`
}
