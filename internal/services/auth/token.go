package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Issuer identifies tokens minted by this service.
const Issuer = "kidchat-api"

// ErrInvalidToken covers expired, malformed, or mis-signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenService mints and verifies parent access and refresh tokens and
// hashes passwords.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a token service
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// HashPassword hashes a password with bcrypt.
func (t *TokenService) HashPassword(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether raw matches the stored hash.
func (t *TokenService) VerifyPassword(raw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

// CreateAccessToken mints a signed access token for the parent.
func (t *TokenService) CreateAccessToken(parentID uuid.UUID, email string, role string) (string, int64, error) {
	return t.mint(parentID, t.accessTTL, jwt.MapClaims{
		"typ":   "access",
		"email": email,
		"role":  role,
	})
}

// CreateRefreshToken mints a long-lived token that can only be exchanged
// for a new access token. It carries no profile claims; the refresh
// handler reloads the parent from the store.
func (t *TokenService) CreateRefreshToken(parentID uuid.UUID) (string, int64, error) {
	return t.mint(parentID, t.refreshTTL, jwt.MapClaims{
		"typ": "refresh",
	})
}

func (t *TokenService) mint(parentID uuid.UUID, ttl time.Duration, claims jwt.MapClaims) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims["iss"] = Issuer
	claims["sub"] = parentID.String()
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp.Unix(), nil
}

// ParseAccessToken verifies the signature and claims and returns the
// parent ID the token was minted for.
func (t *TokenService) ParseAccessToken(tokenStr string) (uuid.UUID, error) {
	return t.parse(tokenStr, "access")
}

// ParseRefreshToken verifies a refresh token. Access tokens are rejected
// so a leaked short-lived token cannot extend itself.
func (t *TokenService) ParseRefreshToken(tokenStr string) (uuid.UUID, error) {
	return t.parse(tokenStr, "refresh")
}

func (t *TokenService) parse(tokenStr, wantTyp string) (uuid.UUID, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != wantTyp {
		return uuid.Nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	parentID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return parentID, nil
}
