package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role is the capability claim carried by every verified identity.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the result of verifying a bearer credential.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Verifier is the contract the identity collaborator must satisfy.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// TokenCodec issues and verifies HMAC-signed bearer tokens. The token body
// is "userID|role|expiresUnix" and the signature covers the whole body.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for the given identity.
func (c *TokenCodec) Issue(identity Identity) string {
	expires := time.Now().UTC().Add(c.ttl).Unix()
	body := fmt.Sprintf("%s|%s|%d", identity.UserID, identity.Role, expires)
	sig := c.sign(body)
	return base64.RawURLEncoding.EncodeToString([]byte(body + "|" + sig))
}

// Verify checks the signature and expiry and returns the embedded identity.
func (c *TokenCodec) Verify(token string) (Identity, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 {
		return Identity{}, ErrInvalidToken
	}

	body := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(c.sign(body)), []byte(parts[3])) {
		return Identity{}, ErrInvalidToken
	}

	expires, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if time.Now().UTC().Unix() > expires {
		return Identity{}, ErrExpiredToken
	}

	role := Role(parts[1])
	if role != RoleCustomer && role != RoleAdmin {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: parts[0], Role: role}, nil
}

func (c *TokenCodec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
