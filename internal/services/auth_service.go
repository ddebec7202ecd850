package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Authentication failures, all wrapping ErrUnauthorized
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrAccountInactive    = fmt.Errorf("account is inactive: %w", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("token has expired: %w", ErrUnauthorized)
)

const refreshTokenTTL = 30 * 24 * time.Hour

// AccessClaims is the payload of an access token
type AccessClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session is what a successful login or refresh hands back. LegacyToken is
// the access token in the form older clients send in the "token" header; it
// is only set when a legacy prefix is configured.
type Session struct {
	AccessToken  string              `json:"token"`
	LegacyToken  string              `json:"legacy_token,omitempty"`
	RefreshToken string              `json:"refresh_token"`
	ExpiresAt    time.Time           `json:"expires_at"`
	User         models.UserResponse `json:"user"`
}

// AuthService issues and verifies staff sessions
type AuthService struct {
	users   repository.UserRepository
	refresh repository.RefreshTokenRepository
	cfg     *config.Config
	now     func() time.Time
}

func NewAuthService(users repository.UserRepository, refresh repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{users: users, refresh: refresh, cfg: cfg, now: time.Now}
}

// Login checks an email/password pair and opens a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}
	if !VerifyPassword(password, user.EncryptedPassword) {
		return nil, ErrInvalidCredentials
	}

	session, err := s.open(ctx, user)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if s.users.TouchLastLogin(ctx, user.ID, at) == nil {
		session.User.LastLoginAt = &at
	}
	return session, nil
}

// Refresh trades a refresh token for a new session. Refresh tokens are
// single use: the presented one is revoked whether or not the exchange succeeds.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Session, error) {
	stored, err := s.refresh.FindByToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	_ = s.refresh.Delete(ctx, token)
	if stored.ExpiredAt(s.now()) {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}
	return s.open(ctx, user)
}

// Logout revokes a refresh token. An unknown or empty token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.refresh.Delete(ctx, token)
}

// LogoutEverywhere revokes every refresh token the user holds
func (s *AuthService) LogoutEverywhere(ctx context.Context, userID uint) error {
	return s.refresh.DeleteByUser(ctx, userID)
}

// Authenticate verifies an access token, whichever header it arrived in,
// and returns its claims
func (s *AuthService) Authenticate(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil, !parsed.Valid, claims.UserID == 0:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) open(ctx context.Context, user *models.User) (*Session, error) {
	issued := s.now()
	expires := issued.Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.issueRefreshToken(ctx, user.ID, issued)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session := &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires,
		User:         user.ToResponse(),
	}
	if s.cfg.LegacyTokenPrefix != "" {
		session.LegacyToken = s.cfg.LegacyTokenPrefix + access
	}
	return session, nil
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID uint, issued time.Time) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	expires := issued.Add(refreshTokenTTL)
	if err := s.refresh.Create(ctx, &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: &expires}); err != nil {
		return "", err
	}
	return token, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword reports whether password matches the bcrypt hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
