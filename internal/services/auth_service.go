package services

import (
	"context"
	"errors"

	"github.com/notebase/backend-go/internal/auth"
	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/repository"
	"gorm.io/gorm"
)

// AuthService 用户注册与登录
type AuthService struct {
	users repository.UserRepository
	jwt   *auth.JWTService
}

// NewAuthService 创建认证服务
func NewAuthService(users repository.UserRepository, jwt *auth.JWTService) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

// Register 注册新用户
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeConflict, "username already taken")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInternalError("failed to check username", err)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeConflict, "email already registered")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInternalError("failed to check email", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewInternalError("failed to create user", err)
	}
	return user, nil
}

// Login 校验凭据并签发JWT
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperrors.NewBusinessError(apperrors.ErrCodeUnauthorized, "invalid credentials")
		}
		return "", nil, apperrors.NewInternalError("failed to load user", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return "", nil, apperrors.NewBusinessError(apperrors.ErrCodeUnauthorized, "invalid credentials")
	}

	token, err := s.jwt.GenerateToken(user.UserID, user.Username)
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to generate token", err)
	}
	return token, user, nil
}
