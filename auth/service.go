package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 6 characters")
	// ErrTokenInvalid signals an unparseable, expired or revoked token.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Claims is the verified content of a bearer token.
type Claims struct {
	UserID    string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// Service handles authentication business logic.
type Service struct {
	repo      Repository
	revoker   Revoker
	jwtSecret []byte
	tokenTTL  time.Duration
}

// LoginResult bundles the token and domain user returned after a successful
// login or registration.
type LoginResult struct {
	Token string
	User  User
}

// NewService creates a new authentication service.
func NewService(repo Repository, revoker Revoker, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		revoker:   revoker,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new user account and returns an implicit login.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	if len(req.Password) < 6 {
		return LoginResult{}, ErrWeakPassword
	}
	if req.Email == "" {
		return LoginResult{}, fmt.Errorf("auth: email is required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: hash password: %w", err)
	}

	role := Role(strings.TrimSpace(string(req.Role)))
	if role == "" {
		role = RoleClient
	}
	// Admin accounts are provisioned out of band, never self-registered.
	if role != RoleClient && role != RoleProvider {
		return LoginResult{}, fmt.Errorf("auth: invalid role %q", role)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(passwordHash),
		Role:         role,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		City:         strings.TrimSpace(req.City),
	})
	if err != nil {
		return LoginResult{}, err
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// Login authenticates a user and returns a JWT token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		return LoginResult{}, fmt.Errorf("auth: touch last login: %w", err)
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// Logout revokes the presented token until its natural expiry. Subsequent
// verification of the same token fails with ErrTokenInvalid.
func (s *Service) Logout(ctx context.Context, claims Claims) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a patch to the caller's account and returns the
// updated record.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*User, error) {
	user, err := s.repo.UpdateUser(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyToken validates a JWT token and returns its claims. Revoked tokens
// are rejected even when cryptographically valid.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	userID, ok := mapClaims["user_id"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing user_id", ErrTokenInvalid)
	}
	roleStr, ok := mapClaims["role"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}
	role := Role(roleStr)
	if role != RoleClient && role != RoleProvider && role != RoleAdmin {
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, roleStr)
	}
	tokenID, ok := mapClaims["jti"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing jti", ErrTokenInvalid)
	}
	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrTokenInvalid)
	}

	revoked, err := s.revoker.IsRevoked(ctx, tokenID)
	if err != nil {
		return Claims{}, fmt.Errorf("auth: check revocation: %w", err)
	}
	if revoked {
		return Claims{}, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}

	return Claims{
		UserID:    userID,
		Role:      role,
		TokenID:   tokenID,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// generateToken creates a JWT token for the user.
func (s *Service) generateToken(userID string, role Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     uuid.NewString(),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
