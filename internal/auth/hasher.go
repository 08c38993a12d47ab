package auth

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher defines the minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// ErrPasswordTooLong is returned for passwords bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// BcryptHasher implementation. A zero Cost means bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost   int
	Logger *zap.SugaredLogger
}

func NewBcryptHasher(cost int, logger *zap.SugaredLogger) BcryptHasher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return BcryptHasher{Cost: cost, Logger: logger}
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	if len(pw) > 72 {
		return "", ErrPasswordTooLong
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify compares in constant time. A malformed stored hash is reported
// as a mismatch and logged; it never panics.
func (b BcryptHasher) Verify(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	switch {
	case err == nil:
		return true
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false
	default:
		if b.Logger != nil {
			b.Logger.Warnw("stored password hash malformed", "reason", err.Error())
		}
		return false
	}
}
