package tokens

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/workout_journal/internal/models"
)

// Audience values keep the three token kinds apart: a refresh token must
// never pass verification as an access token and vice versa.
const (
	AudienceAccess  = "workout-journal"
	AudienceRefresh = "workout-journal/refresh"
	AudienceReset   = "workout-journal/reset"
)

const (
	AccessTTL  = time.Hour
	RefreshTTL = 7 * 24 * time.Hour
	ResetTTL   = 15 * time.Minute
)

var ErrWrongAudience = errors.New("wrong token audience")

type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func IssueAccess(user *models.User, secret []byte) (string, time.Time, error) {
	return issue(user, secret, AudienceAccess, AccessTTL)
}

func IssueRefresh(user *models.User, secret []byte) (string, time.Time, error) {
	return issue(user, secret, AudienceRefresh, RefreshTTL)
}

func IssueReset(user *models.User, secret []byte) (string, time.Time, error) {
	return issue(user, secret, AudienceReset, ResetTTL)
}

func issue(user *models.User, secret []byte, audience string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates signature and expiry, then checks the audience claim.
// Any failure yields a nil claims pointer.
func Parse(tokenStr string, secret []byte, audience string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if !slices.Contains(claims.Audience, audience) {
		return nil, ErrWrongAudience
	}
	return &claims, nil
}
