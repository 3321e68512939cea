package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators carried in the "type" claim
const (
	TokenTypeRefresh       = "refresh"
	TokenTypePasswordReset = "password_reset"
)

// ErrInvalidToken is the single externally visible verification failure.
// Signature, expiry, audience, and missing-claim problems all collapse into
// it so callers cannot distinguish why a token was rejected.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the claim set of an access token
type AccessClaims struct {
	UserID      int64          `json:"user_id"`
	Email       string         `json:"email"`
	Name        string         `json:"name,omitempty"`
	GivenName   string         `json:"given_name,omitempty"`
	FamilyName  string         `json:"family_name,omitempty"`
	Roles       []string       `json:"roles"`
	Permissions []string       `json:"permissions"`
	IsActive    bool           `json:"is_active"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token. Subject is the user id
// as a string.
type RefreshClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// ResetClaims is the claim set of a password reset token
type ResetClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// AccessTokenInput carries everything stamped into an access token
type AccessTokenInput struct {
	UserID      int64
	Email       string
	Name        string
	GivenName   string
	FamilyName  string
	Roles       []string
	Permissions []string
	IsActive    bool
	Metadata    map[string]any
}

// JWTManager signs and verifies the three token kinds with a shared secret
type JWTManager struct {
	secret             []byte
	issuer             string
	audience           []string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	resetTokenExpiry   time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret, issuer string, audience []string, accessExpiry, refreshExpiry, resetExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:             []byte(secret),
		issuer:             issuer,
		audience:           audience,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		resetTokenExpiry:   resetExpiry,
	}
}

// GenerateAccessToken issues a signed access token for the given identity
func (j *JWTManager) GenerateAccessToken(in AccessTokenInput) (string, error) {
	now := time.Now()

	roles := in.Roles
	if roles == nil {
		roles = []string{}
	}
	permissions := in.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	claims := &AccessClaims{
		UserID:      in.UserID,
		Email:       in.Email,
		Name:        in.Name,
		GivenName:   in.GivenName,
		FamilyName:  in.FamilyName,
		Roles:       roles,
		Permissions: permissions,
		IsActive:    in.IsActive,
		Metadata:    in.Metadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.Email,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings(j.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken issues a signed refresh token for the given user
func (j *JWTManager) GenerateRefreshToken(userID int64) (string, error) {
	now := time.Now()

	claims := &RefreshClaims{
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    j.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// GenerateResetToken issues a signed password reset token for the given user
func (j *JWTManager) GenerateResetToken(userID int64) (string, error) {
	now := time.Now()

	claims := &ResetClaims{
		TokenType: TokenTypePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    j.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.resetTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken verifies signature, temporal claims, audience
// membership, and required-claim presence, and returns the decoded claims
func (j *JWTManager) ValidateAccessToken(tokenString, expectedAudience string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if !containsAudience(claims.Audience, expectedAudience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	if claims.Subject == "" || claims.UserID == 0 ||
		claims.Roles == nil || claims.Permissions == nil {
		return nil, fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	}

	return claims, nil
}

// ValidateRefreshToken verifies a refresh token and returns the embedded
// user id. The "type" claim must be "refresh"; an otherwise well-signed
// token of another kind is rejected.
func (j *JWTManager) ValidateRefreshToken(tokenString string) (int64, error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	if claims.TokenType != TokenTypeRefresh {
		return 0, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	}

	return userID, nil
}

// ValidateResetToken verifies a password reset token and returns the
// embedded user id
func (j *JWTManager) ValidateResetToken(tokenString string) (int64, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	if claims.TokenType != TokenTypePasswordReset {
		return 0, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	}

	return userID, nil
}

// AccessTokenExpirySeconds returns the access token lifetime in seconds
func (j *JWTManager) AccessTokenExpirySeconds() int {
	return int(j.accessTokenExpiry.Seconds())
}

// RefreshTokenExpiry returns the refresh token lifetime
func (j *JWTManager) RefreshTokenExpiry() time.Duration {
	return j.refreshTokenExpiry
}

func (j *JWTManager) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.secret, nil
}

func containsAudience(audience jwt.ClaimStrings, expected string) bool {
	for _, a := range audience {
		if a == expected {
			return true
		}
	}
	return false
}
