package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/models"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/repository"
	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
	"github.com/l-t-m-f/XO-TicTacToe/internal/config"
)

// UserService defines the interface for user-related business logic.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	GuestLogin(ctx context.Context) (*models.LoginResponse, error)
}

type userService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewUserService creates a new UserService signing tokens per cfg.
func NewUserService(userRepo repository.UserRepository, cfg config.AuthConfig) UserService {
	return &userService{
		userRepo:  userRepo,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
	}
}

// Register handles user registration.
func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) error {
	existingUser, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existingUser != nil {
		return apperror.ErrUserExists
	}

	user := &models.User{
		Username: req.Username,
	}
	return s.userRepo.CreateUser(ctx, user, req.Password)
}

// Login verifies credentials and returns a signed token. Registered
// players carry their username as the player identity.
func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	token, err := s.signToken(jwt.MapClaims{
		"sub": user.Username,
		"un":  user.Username,
		"uid": user.ID,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Token:    token,
		PlayerID: user.Username,
		Username: user.Username,
	}, nil
}

// GuestLogin issues a throwaway identity and token without a stored user.
func (s *userService) GuestLogin(ctx context.Context) (*models.LoginResponse, error) {
	playerID := uuid.New().String()

	token, err := s.signToken(jwt.MapClaims{
		"sub": playerID,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Token:    token,
		PlayerID: playerID,
	}, nil
}

func (s *userService) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
