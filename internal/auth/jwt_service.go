package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	// ErrMalformedToken is returned when a token parses but lacks the subject or token id.
	ErrMalformedToken = errors.New("token is missing subject or id")
)

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (tokenID string, token string, err error)
	Parse(token string) (userID uuid.UUID, tokenID string, err error)
}

// JWTService handles JWT token generation and validation. Tokens carry no
// expiry: they stay valid until their id is removed from the user's token set.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// Ensure JWTService implements TokenIssuer
var _ TokenIssuer = (*JWTService)(nil)

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue generates a signed token for the user with a fresh token id.
func (s *JWTService) Issue(userID uuid.UUID) (tokenID string, token string, err error) {
	tokenID = generateTokenID()
	claims := &jwt.RegisteredClaims{
		Subject:  userID.String(),
		ID:       tokenID,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = tokenObj.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return tokenID, token, nil
}

// Parse validates the signature and returns the user id and token id.
func (s *JWTService) Parse(tokenString string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return uuid.Nil, "", ErrMalformedToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrMalformedToken
	}
	return userID, claims.ID, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}
