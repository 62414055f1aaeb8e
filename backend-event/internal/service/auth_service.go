package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// authService implements the AuthService interface
type authService struct {
	userRepo   repository.UserRepository
	jwtConfig  *middleware.JWTConfig
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtConfig *middleware.JWTConfig) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtConfig:  jwtConfig,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Signup creates a member and issues a token
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.signup")
	defer span.End()

	if valid, msg := req.Validate(); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Email:        domain.NormalizeEmail(req.Email),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	logger.WithContext(ctx).Info("member signed up", logger.UserID(user.ID))
	return s.issue(user)
}

// Login verifies credentials and issues a token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	return s.issue(user)
}

// Me returns the member behind a token
func (s *authService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// UpdateMe edits the member. A new password is re-hashed and a new email must
// not belong to another member. Issued tokens keep working until they expire.
func (s *authService) UpdateMe(ctx context.Context, userID int64, req *dto.UpdateMeRequest) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.update_me")
	defer span.End()

	if valid, msg := req.Validate(); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := domain.NormalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := s.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != user.ID {
				return nil, domain.ErrEmailTaken
			}
		}
		user.Email = email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if req.ProfileImage != nil {
		user.ProfileImage = strings.TrimSpace(*req.ProfileImage)
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	logger.WithContext(ctx).Info("member profile updated",
		logger.UserID(user.ID),
		zap.Bool("email_changed", req.Email != nil),
		zap.Bool("password_changed", req.Password != nil))
	return user, nil
}

func (s *authService) issue(user *domain.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := middleware.IssueToken(s.jwtConfig, user.ID, user.Email, user.Name, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        dto.NewUserResponse(user),
	}, nil
}
