package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"campusshop/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// Authenticator is the remote side of login and registration.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, name, email, password string) (*models.Session, error)
}

// AuthService handles customer login against the shop API and issues the
// storefront's own visitor tokens.
type AuthService struct {
	remote     Authenticator
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which a visitor token is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(remote Authenticator, jwtSecret string, tokenDurat time.Duration) *AuthService {
	if tokenDurat <= 0 {
		tokenDurat = 24 * time.Hour
	}
	return &AuthService{
		remote:     remote,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDurat,
	}
}

// Login authenticates the customer with the shop API. Rejections come back
// as *shopapi.AuthError carrying the server's message.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := s.remote.Login(ctx, email, password)
	if err != nil {
		log.Printf("Login failed for %s: %v", email, err)
		return nil, err
	}
	if session.Token == "" {
		return nil, fmt.Errorf("login response for %s carried no token", email)
	}
	if session.Email == "" {
		session.Email = email
	}
	return session, nil
}

// Register creates a customer account and logs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	session, err := s.remote.Register(ctx, name, email, password)
	if err != nil {
		log.Printf("Registration failed for %s: %v", email, err)
		return nil, err
	}
	if session.Token == "" {
		return nil, fmt.Errorf("registration response for %s carried no token", email)
	}
	if session.Email == "" {
		session.Email = email
	}
	if session.Name == "" {
		session.Name = name
	}
	return session, nil
}

// IssueToken signs a visitor token for the given session id.
func (s *AuthService) IssueToken(sessionID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"exp":        now.Add(s.tokenDurat).Unix(),
		"iat":        now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a visitor token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// SessionID validates a visitor token and returns the session it names.
func (s *AuthService) SessionID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	id, ok := claims["session_id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("invalid token: missing session id")
	}
	return id, nil
}
