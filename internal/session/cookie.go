package session

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/blake2b"
)

var ErrInvalidCookie = errors.New("invalid session cookie")

// cookieCodec seals session ids into PASETO v4.local tokens so the cookie
// value is opaque and tamper-proof. The key is derived from the session
// secret, which may be any length.
type cookieCodec struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
}

func newCookieCodec(secret string, ttl time.Duration) (*cookieCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}

	sum := blake2b.Sum256([]byte(secret))
	key, err := paseto.V4SymmetricKeyFromBytes(sum[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &cookieCodec{key: key, ttl: ttl}, nil
}

func (c *cookieCodec) encode(id string, now time.Time) string {
	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(c.ttl))
	token.SetString("sid", id)

	return token.V4Encrypt(c.key, nil)
}

func (c *cookieCodec) decode(value string) (string, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(c.key, value, nil)
	if err != nil {
		return "", ErrInvalidCookie
	}

	id, err := token.GetString("sid")
	if err != nil || id == "" {
		return "", ErrInvalidCookie
	}

	return id, nil
}
