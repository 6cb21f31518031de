package auth

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized covers every credential failure: missing token, bad
// signature, expired, or a token without a subject.
var ErrUnauthorized = errors.New("unauthorized")

const tokenTTL = 24 * time.Hour

// IAuthService verifies opaque bearer tokens into identities. The
// identity returned by Verify is fixed for the lifetime of the session
// that presented the token; it is never re-derived from later client
// input.
type IAuthService interface {
	// Verify returns the identity carried by token.
	Verify(token string) (string, error)
	// Issue mints a token for identity, used by the login endpoint.
	Issue(identity string) (string, error)
}

type authService struct {
	secret []byte
}

func NewAuthService(secret string) IAuthService {
	return &authService{secret: []byte(secret)}
}

func (s *authService) Verify(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: claims type mismatch", ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return sub, nil
}

func (s *authService) Issue(identity string) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub": identity,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}
