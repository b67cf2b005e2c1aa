package toolkit

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ConnectJwt authorizes a viewer to connect, when the server is configured with a key.
type ConnectJwt struct {
	// identifies the viewer, e.g. an operator name
	Subject string
	// roles or display name, application defined
	Name string
	// zero means no expiry
	ExpiresAt time.Time
}

func SignConnectJwt(connectJwt *ConnectJwt, key []byte) (string, error) {
	claims := gojwt.MapClaims{
		"sub": connectJwt.Subject,
		"iat": time.Now().Unix(),
	}
	if connectJwt.Name != "" {
		claims["name"] = connectJwt.Name
	}
	if !connectJwt.ExpiresAt.IsZero() {
		claims["exp"] = connectJwt.ExpiresAt.Unix()
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ParseConnectJwt verifies the signature (HS256 only) and expiry.
func ParseConnectJwt(jwt string, key []byte) (*ConnectJwt, error) {
	parser := gojwt.NewParser(gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}))
	token, err := parser.Parse(jwt, func(token *gojwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, errors.New("Unexpected claims.")
	}

	connectJwt := &ConnectJwt{}
	if subject, err := claims.GetSubject(); err == nil {
		connectJwt.Subject = subject
	}
	if name, ok := claims["name"]; ok {
		connectJwt.Name, _ = name.(string)
	}
	if expiresAt, err := claims.GetExpirationTime(); err == nil && expiresAt != nil {
		connectJwt.ExpiresAt = expiresAt.Time
	}
	return connectJwt, nil
}

// ParseConnectJwtUnverified reads the claims without verifying. For display only.
func ParseConnectJwtUnverified(jwt string) (*ConnectJwt, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(jwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	connectJwt := &ConnectJwt{}
	if subject, ok := claims["sub"]; ok {
		connectJwt.Subject, _ = subject.(string)
	}
	if name, ok := claims["name"]; ok {
		connectJwt.Name, _ = name.(string)
	}
	if expiresAt, err := claims.GetExpirationTime(); err == nil && expiresAt != nil {
		connectJwt.ExpiresAt = expiresAt.Time
	}
	return connectJwt, nil
}
