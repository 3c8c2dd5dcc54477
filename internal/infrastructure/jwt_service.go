package infrastructure

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionPurpose       = "session"
	passwordResetPurpose = "password_reset"
	passwordResetTTL     = time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type JWTService struct {
	secretKey []byte
	lifetime  time.Duration
}

type tokenClaims struct {
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTService(secretKey string, lifetime time.Duration) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		lifetime:  lifetime,
	}
}

// SessionToken is a signed login token and its registry id.
type SessionToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

func (j *JWTService) GenerateToken(userID uint) (*SessionToken, error) {
	now := time.Now()
	exp := now.Add(j.lifetime)
	jti := uuid.NewString()

	claims := tokenClaims{
		Purpose: sessionPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := j.sign(claims)
	if err != nil {
		return nil, err
	}
	return &SessionToken{Token: signed, ID: jti, ExpiresAt: exp}, nil
}

// ParseToken validates a session token and returns the user id and token id.
func (j *JWTService) ParseToken(token string) (uint, string, error) {
	claims, err := j.parse(token, sessionPurpose)
	if err != nil {
		return 0, "", err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return 0, "", err
	}
	return userID, claims.ID, nil
}

// GenerateResetToken issues a password-reset token bound to fingerprint, the
// user's current password fingerprint. Changing the password voids it.
func (j *JWTService) GenerateResetToken(userID uint, fingerprint string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Purpose:     passwordResetPurpose,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(passwordResetTTL)),
		},
	}
	return j.sign(claims)
}

// ParseResetToken returns the user id and password fingerprint of a reset token.
func (j *JWTService) ParseResetToken(token string) (uint, string, error) {
	claims, err := j.parse(token, passwordResetPurpose)
	if err != nil {
		return 0, "", err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return 0, "", err
	}
	return userID, claims.Fingerprint, nil
}

func (j *JWTService) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTService) parse(token, purpose string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: unexpected purpose %q", ErrInvalidToken, claims.Purpose)
	}
	return claims, nil
}

func subjectID(claims *tokenClaims) (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}
