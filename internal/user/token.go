package user

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	sessionPurpose = "session"
	resetPurpose   = "password_reset"
	resetTTL       = 72 * time.Hour
)

// Tokens signs the session cookie and password reset links with one HMAC key.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Secret() []byte {
	return t.secret
}

// Issue returns a signed session token for user and when it expires.
func (t *Tokens) Issue(user User) (string, time.Time, error) {
	exp := t.now().Add(t.ttl)
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"purpose":  sessionPurpose,
		"exp":      exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies raw and returns the token with its MapClaims.
func (t *Tokens) Parse(raw string) (*jwt.Token, error) {
	tok, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenMalformed
	}
	return tok, nil
}

// ParseSession is Parse restricted to tokens minted by Issue. Reset tokens
// share the key and must never open a session.
func (t *Tokens) ParseSession(raw string) (*jwt.Token, error) {
	tok, err := t.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !isSession(tok) {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return tok, nil
}

func isSession(tok *jwt.Token) bool {
	if tok == nil {
		return false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	return ok && claims["purpose"] == sessionPurpose
}

// IssueReset returns a password reset token. It stops validating once the
// user's password changes or three days pass.
func (t *Tokens) IssueReset(user User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"purpose": resetPurpose,
		"pwd":     passwordFingerprint(user.Password),
		"exp":     t.now().Add(resetTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// CheckReset reports whether raw is a live reset token for user.
func (t *Tokens) CheckReset(user User, raw string) error {
	tok, err := t.Parse(raw)
	if err != nil {
		return ErrInvalidResetLink
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidResetLink
	}
	id, err := claimUserID(claims)
	if err != nil || id != user.ID {
		return ErrInvalidResetLink
	}
	if claims["purpose"] != resetPurpose || claims["pwd"] != passwordFingerprint(user.Password) {
		return ErrInvalidResetLink
	}
	return nil
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// EncodeUID and DecodeUID produce the uidb64 segment of reset links.
func EncodeUID(id int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

func DecodeUID(uidb64 string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return 0, ErrInvalidResetLink
	}
	id, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, ErrInvalidResetLink
	}
	return id, nil
}

func claimUserID(claims jwt.MapClaims) (int, error) {
	raw, ok := claims["user_id"]
	if !ok {
		return 0, jwt.ErrTokenMalformed
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, jwt.ErrTokenMalformed
	}
}
