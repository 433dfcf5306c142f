package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultClientTokenExpiry bounds how long a browser keeps its client id.
const DefaultClientTokenExpiry = 30 * 24 * time.Hour

const issuer = "hms-portal"

// ClientClaims identifies one browser. It carries no user identity: the
// session itself lives in the client's storage namespace.
type ClientClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// JWTService signs and validates client tokens.
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	if expiry <= 0 {
		expiry = DefaultClientTokenExpiry
	}
	return &JWTService{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Expiry is the lifetime of issued tokens.
func (s *JWTService) Expiry() time.Duration {
	return s.expiry
}

// IssueClientToken creates a fresh client id and its signed token.
func (s *JWTService) IssueClientToken() (clientID string, token string, err error) {
	clientID = uuid.New().String()
	now := time.Now()
	claims := &ClientClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        clientID,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return clientID, token, err
}

// ValidateToken validates a client token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*ClientClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ClientClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if err := ClientIDFromClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ClientIDFromClaims checks that claims carry a well formed client id.
func ClientIDFromClaims(claims *ClientClaims) error {
	if claims == nil || claims.ClientID == "" {
		return errors.New("client id not found")
	}
	if _, err := uuid.Parse(claims.ClientID); err != nil {
		return errors.New("malformed client id")
	}
	return nil
}
