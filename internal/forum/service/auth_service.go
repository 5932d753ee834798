package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	pkgerrors "stackit/pkg/errors"
	"stackit/pkg/utils/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAccessTokenTTL = 24 * time.Hour
	defaultJWTIssuer      = "stackit"
	tokenTypeAccess       = "access"
)

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	JWTSecret      []byte
	JWTIssuer      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	Now   func() time.Time
	NewID func(prefix string) string
}

// AuthService registers accounts, checks credentials and issues access tokens.
type AuthService struct {
	store  repository.UserStore
	config AuthServiceConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.UserStore, cfg AuthServiceConfig) *AuthService {
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = defaultAccessTokenTTL
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = defaultJWTIssuer
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewID == nil {
		cfg.NewID = NewID
	}
	return &AuthService{store: store, config: cfg}
}

// RegisterInput represents input for user registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput represents input for user login.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult carries the issued token and the signed-in user.
type AuthResult struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *model.User `json:"user"`
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Register creates a user account and signs it in. New accounts always get the user role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return AuthResult{}, err
	}
	email, err := validateEmail(input.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return AuthResult{}, err
	}

	passwordHash, err := s.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.config.Now()
	user := &model.User{
		ID:           s.config.NewID("u"),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CreatedAt:    now,
	}
	activity := &model.Activity{
		ID:          s.config.NewID("act"),
		Type:        model.ActivityUserJoined,
		ActorID:     user.ID,
		Title:       "User joined",
		Description: name + " created an account",
		CreatedAt:   now,
	}
	if err := s.store.CreateUser(ctx, user, activity); err != nil {
		if stderrors.Is(err, repository.ErrAlreadyExists) {
			return AuthResult{}, pkgerrors.New(pkgerrors.EmailAlreadyExists)
		}
		return AuthResult{}, storeError(err, pkgerrors.UserNotFound, "create user")
	}

	logger.Info(ctx, "user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, pkgerrors.New(pkgerrors.InvalidCredentials)
	}
	user, err := s.store.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, pkgerrors.New(pkgerrors.InvalidCredentials)
		}
		return AuthResult{}, storeError(err, pkgerrors.UserNotFound, "get user")
	}
	if user.PasswordHash == "" {
		return AuthResult{}, pkgerrors.New(pkgerrors.InvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResult{}, pkgerrors.New(pkgerrors.InvalidCredentials)
	}
	return s.issue(user)
}

// Authenticate resolves an access token to the actor it was issued for.
func (s *AuthService) Authenticate(raw string) (model.Actor, error) {
	if raw == "" {
		return model.Actor{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, err := s.parseToken(raw)
	if err != nil {
		return model.Actor{}, err
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok || role == model.RoleGuest {
		return model.Actor{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return model.Actor{ID: claims.Subject, Role: role}, nil
}

// HashPassword hashes a plain-text password with bcrypt.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", pkgerrors.Wrap(fmt.Errorf("hash password failed: %w", err), pkgerrors.InternalServerError)
	}
	return string(hash), nil
}

func (s *AuthService) issue(user *model.User) (AuthResult, error) {
	now := s.config.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)
	claims := tokenClaims{
		Role:      string(user.Role),
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.JWTIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        s.config.NewID("tok"),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return AuthResult{}, pkgerrors.Wrap(fmt.Errorf("sign token failed: %w", err), pkgerrors.TokenGenerationFailed)
	}
	return AuthResult{AccessToken: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) parseToken(raw string) (*tokenClaims, error) {
	if len(s.config.JWTSecret) == 0 {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.config.JWTSecret, nil
	}, jwt.WithTimeFunc(s.config.Now))
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.Issuer != s.config.JWTIssuer {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != tokenTypeAccess || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}
