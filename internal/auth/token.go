package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// TokenManager validates identity tokens issued by the upstream identity
// service. GenerateToken exists for local tooling and tests.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager builds a new manager. An empty issuer disables the issuer check.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: time.Hour}
}

// Claims describes JWT payload.
type Claims struct {
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	Approved bool        `json:"approved"`
	jwt.RegisteredClaims
}

// Actor converts claims into the caller identity used by services.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{ID: c.Subject, Name: c.Name, Role: c.Role, Approved: c.Approved}
}

// GenerateToken builds and signs a JWT for the actor.
func (tm *TokenManager) GenerateToken(actor domain.Actor) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Name:     actor.Name,
		Role:     actor.Role,
		Approved: actor.Approved,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	switch claims.Role {
	case domain.RoleViewer, domain.RoleEditor, domain.RoleAdmin:
	case "":
		claims.Role = domain.RoleViewer
	default:
		return nil, errors.New("unknown role")
	}
	return claims, nil
}
