package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the session snapshot taken at login. A token is never
// refreshed from the account store, so permission edits apply on next login.
type Claims struct {
	UserID           int64          `json:"uid"`
	Username         string         `json:"username"`
	FullName         string         `json:"name"`
	Role             string         `json:"role"`
	DepartmentAccess *string        `json:"dept,omitempty"`
	Permissions      permission.Set `json:"perms"`
	jwt.RegisteredClaims
}

func (c *Claims) Session() *permission.Session {
	return &permission.Session{
		UserID:           c.UserID,
		Username:         c.Username,
		FullName:         c.FullName,
		Role:             permission.Role(c.Role),
		DepartmentAccess: c.DepartmentAccess,
		Permissions:      c.Permissions,
	}
}

type LoginResult struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresAt   time.Time           `json:"expires_at"`
	Session     *permission.Session `json:"session"`
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(session *permission.Session) (token string, claims *Claims, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	Issuer         string
	Now            func() time.Time
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
		Issuer:         "hrm-access",
		Now:            time.Now,
	}
}

// GenerateAccessToken signs an HS256 token embedding session.
func (j *JWTTokenGenerator) GenerateAccessToken(session *permission.Session) (string, *Claims, error) {
	now := j.Now()
	claims := &Claims{
		UserID:           session.UserID,
		Username:         session.Username,
		FullName:         session.FullName,
		Role:             string(session.Role),
		DepartmentAccess: session.DepartmentAccess,
		Permissions:      session.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   session.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	},
		jwt.WithIssuer(j.Issuer),
		jwt.WithTimeFunc(j.Now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}
