// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (digests, JWT signing) from
// the domain logic. The [TokenCodec] is injected into the session service and
// the authentication middleware; neither touches golang-jwt directly.
package sec

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/pkg/uuid"
)

// MinSecretLength is the shortest HMAC key accepted by [NewTokenCodec].
const MinSecretLength = 32

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

var (
	// ErrTokenExpired is returned when a well-signed token is past its exp instant.
	ErrTokenExpired = apperr.New(http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")

	// ErrTokenMalformed covers every other verification failure: bad signature,
	// unexpected algorithm, unparsable structure, wrong kind or unknown role.
	ErrTokenMalformed = apperr.New(http.StatusUnauthorized, "TOKEN_MALFORMED", "Token is invalid")
)

// AuthClaims is the wire payload of every token minted by the codec.
//
// Custom claims are abbreviated to keep the payload small. The jti makes two
// tokens minted within the same second for the same user distinct.
type AuthClaims struct {
	jwt.RegisteredClaims

	Role string    `json:"rol"`
	Kind TokenKind `json:"typ"`
}

// Identity is the verified principal carried by a token or bound to a request.
type Identity struct {
	UserID int64
	Role   Role
}

// Claims is the decoded, validated content of a token.
type Claims struct {
	Identity

	Kind      TokenKind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies HS256 tokens.
//
// Keys are held in a ring addressed by the kid header. New tokens are signed
// with the active key, verification resolves whichever key the token names.
type TokenCodec struct {
	keys        map[string][]byte
	activeKeyID string
	issuer      string
	now         func() time.Time
}

// CodecOption customizes a [TokenCodec].
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) CodecOption {
	return func(codec *TokenCodec) { codec.now = now }
}

// WithVerificationKey adds a key that can verify but never sign. It never
// replaces the signing key.
func WithVerificationKey(keyID string, secret []byte) CodecOption {
	return func(codec *TokenCodec) {
		if _, exists := codec.keys[keyID]; !exists {
			codec.keys[keyID] = secret
		}
	}
}

/*
NewTokenCodec creates a codec that signs with the given key.

Parameters:
  - keyID: string (value of the kid header)
  - secret: []byte (HMAC key, at least [MinSecretLength] bytes)
  - issuer: string (iss claim, also required on verification)

Returns:
  - *TokenCodec: The configured codec
  - error: When the key is too short or the key id is empty
*/
func NewTokenCodec(keyID string, secret []byte, issuer string, opts ...CodecOption) (*TokenCodec, error) {
	if keyID == "" {
		return nil, errors.New("sec: key id must not be empty")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("sec: secret must be at least %d bytes", MinSecretLength)
	}

	codec := &TokenCodec{
		keys:        map[string][]byte{keyID: secret},
		activeKeyID: keyID,
		issuer:      issuer,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}

	return codec, nil
}

// Issue signs a token for subject with the given role, kind and validity.
func (codec *TokenCodec) Issue(subject int64, role Role, kind TokenKind, validity time.Duration) (string, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return "", err
	}
	if validity <= 0 {
		return "", fmt.Errorf("sec: validity must be positive, got %s", validity)
	}

	currentTime := codec.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   strconv.FormatInt(subject, 10),
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(validity)),
		},
		Role: string(role),
		Kind: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = codec.activeKeyID

	signedToken, err := token.SignedString(codec.keys[codec.activeKeyID])
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, expiry and kind of tokenString.
//
// A token whose exp equals the current instant is expired. Expiry is only
// reported for tokens whose signature verified.
func (codec *TokenCodec) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, codec.lookupKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(codec.issuer),
		jwt.WithTimeFunc(codec.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.WithCause(err)
		}
		return nil, ErrTokenMalformed.WithCause(err)
	}

	claims, ok := parsed.Claims.(*AuthClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Kind != kind {
		return nil, ErrTokenMalformed.WithCause(fmt.Errorf("sec: expected %s token, got %q", kind, claims.Kind))
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, ErrTokenMalformed.WithCause(err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrTokenMalformed.WithCause(fmt.Errorf("sec: invalid subject: %w", err))
	}

	decoded := &Claims{
		Identity:  Identity{UserID: userID, Role: role},
		Kind:      claims.Kind,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}

	return decoded, nil
}

func (codec *TokenCodec) lookupKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
	}

	keyID, _ := token.Header["kid"].(string)
	if keyID == "" {
		keyID = codec.activeKeyID
	}

	secret, ok := codec.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("sec: unknown key id %q", keyID)
	}

	return secret, nil
}
