package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// Service accepts a bearer credential that is either one of the static API
// keys or a service JWT.
type Service struct {
	apiKeys [][sha256.Size]byte
	jwt     *JWTManager
}

func NewService(apiKeys []string, jwtManager *JWTManager) *Service {
	hashed := make([][sha256.Size]byte, 0, len(apiKeys))
	for _, key := range apiKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		hashed = append(hashed, sha256.Sum256([]byte(key)))
	}
	return &Service{apiKeys: hashed, jwt: jwtManager}
}

// Enabled reports whether any credential can pass.
func (s *Service) Enabled() bool {
	return s != nil && (len(s.apiKeys) > 0 || s.jwt.Enabled())
}

func (s *Service) Authenticate(bearer string) (Identity, error) {
	bearer = strings.TrimSpace(bearer)
	if s == nil || bearer == "" {
		return Identity{}, ErrUnauthorized
	}

	// compare against every key
	candidate := sha256.Sum256([]byte(bearer))
	matched := 0
	for _, key := range s.apiKeys {
		matched |= subtle.ConstantTimeCompare(candidate[:], key[:])
	}
	if matched == 1 {
		return Identity{Subject: "api-key", Method: MethodAPIKey}, nil
	}

	if s.jwt.Enabled() {
		claims, err := s.jwt.ParseServiceToken(bearer)
		if err == nil {
			return Identity{Subject: claims.Subject, Method: MethodJWT}, nil
		}
	}
	return Identity{}, ErrUnauthorized
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
