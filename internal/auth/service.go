package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-snsapp/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields      = errors.New("email, username, password required")
	ErrAccountTaken       = errors.New("email or username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
)

var hashPasswordFn = bcrypt.GenerateFromPassword

type Service struct {
	issuer *Issuer
	db     db.Querier
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		issuer: NewIssuer(secret),
		db:     db,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || req.Password == "" {
		return User{}, TokenResponse{}, ErrMissingFields
	}

	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Username, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, TokenResponse{}, ErrAccountTaken
		}
		return User{}, TokenResponse{}, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// Login answers ErrInvalidCredentials for both an unknown email and a wrong
// password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	var user User
	err := s.db.QueryRow(ctx, `
		SELECT id, email, username, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, normalizeEmail(req.Email)).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, TokenResponse{}, ErrInvalidCredentials
		}
		return User{}, TokenResponse{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// GenerateTokens issues an access/refresh pair and stores the refresh token.
func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, _, err := signTokenFn(s.issuer, userID, AccessToken)
	if err != nil {
		return TokenResponse{}, err
	}
	refresh, refreshExpires, err := signTokenFn(s.issuer, userID, RefreshToken)
	if err != nil {
		return TokenResponse{}, err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, refresh, refreshExpires)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("save refresh token: %w", err)
	}
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessToken.ttl().Seconds()),
	}, nil
}

// Refresh exchanges a stored refresh token for a new pair. The old token is
// revoked in the same statement that looks it up, so it works once.
func (s *Service) Refresh(ctx context.Context, token string) (TokenResponse, error) {
	claims, err := s.issuer.Verify(token, RefreshToken)
	if err != nil {
		return TokenResponse{}, err
	}

	var userID string
	err = s.db.QueryRow(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > now()
		RETURNING user_id
	`, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenResponse{}, fmt.Errorf("%w: refresh token revoked or unknown", ErrTokenInvalid)
		}
		return TokenResponse{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if userID != claims.UserID {
		return TokenResponse{}, ErrTokenInvalid
	}
	return s.GenerateTokens(ctx, userID)
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.issuer.Verify(token, AccessToken)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
