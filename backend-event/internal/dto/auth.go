package dto

import (
	"strings"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

const minPasswordLength = 8

// SignupRequest represents a member sign-up
type SignupRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=72"`
	Name     string `json:"name" binding:"required,max=50"`
}

// Validate validates the SignupRequest
func (r *SignupRequest) Validate() (bool, string) {
	if !validEmail(r.Email) {
		return false, "Email is invalid"
	}
	if len(r.Password) < minPasswordLength {
		return false, "Password must be at least 8 characters"
	}
	if strings.TrimSpace(r.Name) == "" {
		return false, "Name is required"
	}
	return true, ""
}

// LoginRequest represents an email and password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateMeRequest edits the logged-in member. Nil fields are left alone and
// an empty profileImage removes the image.
type UpdateMeRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=50"`
	Email        *string `json:"email" binding:"omitempty,max=254"`
	Password     *string `json:"password" binding:"omitempty,max=72"`
	ProfileImage *string `json:"profileImage" binding:"omitempty,max=2048"`
}

// Validate validates the UpdateMeRequest
func (r *UpdateMeRequest) Validate() (bool, string) {
	if r.Name == nil && r.Email == nil && r.Password == nil && r.ProfileImage == nil {
		return false, "Nothing to update"
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return false, "Name cannot be empty"
	}
	if r.Email != nil && !validEmail(*r.Email) {
		return false, "Email is invalid"
	}
	if r.Password != nil && len(*r.Password) < minPasswordLength {
		return false, "Password must be at least 8 characters"
	}
	return true, ""
}

// UserResponse represents a member
type UserResponse struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// NewUserResponse maps a user
func NewUserResponse(u *domain.User) *UserResponse {
	return &UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, ProfileImage: u.ProfileImage}
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	AccessToken string        `json:"accessToken"`
	TokenType   string        `json:"tokenType"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	User        *UserResponse `json:"user"`
}
