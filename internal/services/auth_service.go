package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autoparts/internal/apperr"
	"autoparts/internal/models"
	"autoparts/internal/repositories"
	"autoparts/internal/validation"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidToken       = "Invalid or expired token"
)

// Claims are the JWT claims issued to authenticated users.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	validator *validation.Validator
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *zap.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService issuing tokens valid for tokenTTL.
func NewAuthService(userRepo repositories.UserRepository, v *validation.Validator, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		userRepo:  userRepo,
		validator: v,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
	}
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (*AuthResult, error) {
	if err := s.validator.Register(&in); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperr.Conflict("Email already registered")
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, apperr.Internal("Failed to register user", err)
	}

	user := &models.User{Name: in.Name, Email: in.Email}
	user.SetPassword(in.Password)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, apperr.Internal("Failed to register user", err)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID))

	return s.signIn(user)
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords fail identically and cost one bcrypt comparison each.
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*AuthResult, error) {
	if err := s.validator.Login(&in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Internal("Login failed", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(in.Password))
		return nil, apperr.Auth(msgInvalidCredentials)
	}
	if !user.CheckPassword(in.Password) {
		return nil, apperr.Auth(msgInvalidCredentials)
	}
	return s.signIn(user)
}

// CurrentUser returns the user a token was issued to.
func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Failed to fetch user", err)
	}
	return user, nil
}

// UpdateProfile changes the name and/or password of a user. The password is
// re-hashed only when a new one is supplied.
func (s *AuthService) UpdateProfile(ctx context.Context, id uint, in models.ProfileInput) (*models.User, error) {
	if err := s.validator.Profile(&in); err != nil {
		return nil, err
	}
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		user.SetPassword(*in.Password)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Failed to update profile", err)
	}
	return user, nil
}

// IssueToken signs an HS256 token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindAuth, Message: msgInvalidToken, Err: err}
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, apperr.Auth(msgInvalidToken)
	}
	return claims, nil
}

func (s *AuthService) signIn(user *models.User) (*AuthResult, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, apperr.Internal("Failed to issue token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), models.PasswordCost)
		if err != nil {
			s.log.Error("failed to prepare dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
