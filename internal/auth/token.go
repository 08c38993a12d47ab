package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/pkg/utilities"
)

// TokenTypeAccess is the only token purpose this service accepts as a bearer credential.
const TokenTypeAccess = "access"

// Claims carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`

	subjectID int64
}

// SubjectID is the account id from the sub claim.
func (c *Claims) SubjectID() int64 { return c.subjectID }

// TokenCodec issues and verifies HS256 tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token codec: empty signing key")
	}
	if ttl <= 0 {
		return nil, errors.New("token codec: ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{
		secret: key,
		ttl:    ttl,
		// expiry is checked by Decode after the type check so each failure gets its own kind
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL is the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs an access token for subjectID valid from now for the configured TTL.
func (c *TokenCodec) Issue(subjectID int64, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        utilities.NewSnowflakeID(),
		},
		Type: TokenTypeAccess,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies tokenString as of now. It fails with exactly one of
// ErrBadSignature, ErrWrongType or ErrExpired, checked in that order.
func (c *TokenCodec) Decode(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrBadSignature
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongType
	}
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		// only a holder of the signing key could mint this
		return nil, ErrBadSignature
	}
	claims.subjectID = id
	return claims, nil
}
