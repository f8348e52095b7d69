// Package auth holds the token codec, password verification and
// bearer header parsing used by the authentication services.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophstat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime used by EncodeDefault.
const DefaultTokenTTL = 15 * time.Minute

// Claims is the payload carried by an access token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenCodec turns Claims into signed, time-limited tokens and back.
type TokenCodec interface {
	Encode(claims Claims, ttl time.Duration) (string, error)
	Decode(token string) (*Claims, error)
}

// JWTCodec is a TokenCodec producing HMAC-signed JWTs with "sub" and "exp".
type JWTCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewJWTCodec returns a codec for one of HS256, HS384 or HS512.
func NewJWTCodec(secret []byte, algorithm string) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt: empty secret key")
	}
	method, ok := jwt.GetSigningMethod(strings.ToUpper(algorithm)).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported algorithm %q", algorithm)
	}
	return &JWTCodec{secret: secret, method: method, now: time.Now}, nil
}

// Encode signs claims with an expiry of now+ttl. Claims.ExpiresAt is ignored.
// A non-positive ttl yields a token that is already expired.
func (c *JWTCodec) Encode(claims Claims, ttl time.Duration) (string, error) {
	rc := jwt.RegisteredClaims{
		Subject:   claims.Subject,
		ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
	}
	return jwt.NewWithClaims(c.method, rc).SignedString(c.secret)
}

// EncodeDefault is Encode with DefaultTokenTTL.
func (c *JWTCodec) EncodeDefault(claims Claims) (string, error) {
	return c.Encode(claims, DefaultTokenTTL)
}

// Decode verifies the signature first and only then the claims. Segments
// must be canonical base64url, so every character of the token counts. Every
// failure matches common.ErrInvalidToken and one of ErrInvalidSignature,
// ErrMalformedToken or ErrTokenExpired.
func (c *JWTCodec) Decode(token string) (*Claims, error) {
	rc := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, rc,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, classify(err))
	}

	return &Claims{Subject: rc.Subject, ExpiresAt: rc.ExpiresAt.Time}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		return common.ErrMalformedToken
	}
}
