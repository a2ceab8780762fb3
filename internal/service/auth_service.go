package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// ProfileStore reads and creates user profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id int) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	Create(ctx context.Context, p *model.UserProfile) error
}

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int        `json:"user_id"`
	Role     model.Role `json:"role"`
	External bool       `json:"external,omitempty"`
}

// Identity converts validated claims into the admission engine's view.
func (c *Claims) Identity() model.Identity {
	if c == nil {
		return model.Identity{}
	}
	return model.Identity{UserID: c.UserID, Authenticated: true, External: c.External}
}

// AuthService handles password login, JWT and single-device sessions.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	profiles ProfileStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, profiles ProfileStore) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, profiles: profiles}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies email and password and issues a token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := s.CheckPassword(profile.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.GenerateToken(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, Profile: *profile}, nil
}

// GenerateToken signs a JWT for the profile and makes it the user's only
// valid session; tokens issued earlier stop working.
func (s *AuthService) GenerateToken(ctx context.Context, profile *model.UserProfile) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(profile.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:   profile.ID,
		Role:     profile.Role,
		External: profile.IsExternal,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.UserLoginKey(profile.ID), jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateSession checks that jti is the user's current login.
func (s *AuthService) ValidateSession(ctx context.Context, userID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserLoginKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// Logout invalidates the user's current session.
func (s *AuthService) Logout(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserLoginKey(userID)).Err()
}

// Profile returns the profile behind a token.
func (s *AuthService) Profile(ctx context.Context, userID int) (*model.UserProfile, error) {
	return s.profiles.GetByID(ctx, userID)
}

// CreateUser hashes the password and stores a new profile.
func (s *AuthService) CreateUser(ctx context.Context, p *model.UserProfile, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.PasswordHash = hash
	return s.profiles.Create(ctx, p)
}
