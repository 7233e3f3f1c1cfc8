package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	MethodAPIKey = "api_key"
	MethodJWT    = "jwt"
)

type ServiceClaims struct {
	Subject   string
	ExpiresAt time.Time
}
