package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/workout_journal/internal/models"
)

var secret = []byte("test-secret")

func testUser() *models.User {
	return &models.User{ID: 7, Email: "a@b.com", Name: "alice"}
}

func TestIssueAndParseAccess(t *testing.T) {
	token, exp, err := IssueAccess(testUser(), secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(AccessTTL), exp, 5*time.Second)

	claims, err := Parse(token, secret, AudienceAccess)
	require.NoError(t, err)
	require.NotNil(t, claims)
	require.EqualValues(t, 7, claims.UserID)
	require.Equal(t, "a@b.com", claims.Email)
	require.NotEmpty(t, claims.ID)
}

func TestRefreshLivesLongerThanAccess(t *testing.T) {
	_, accessExp, err := IssueAccess(testUser(), secret)
	require.NoError(t, err)
	_, refreshExp, err := IssueRefresh(testUser(), secret)
	require.NoError(t, err)

	require.WithinDuration(t, time.Now().Add(time.Hour), accessExp, 5*time.Second)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), refreshExp, 5*time.Second)
}

func TestAudienceKeepsTokenKindsApart(t *testing.T) {
	access, _, err := IssueAccess(testUser(), secret)
	require.NoError(t, err)
	refresh, _, err := IssueRefresh(testUser(), secret)
	require.NoError(t, err)
	reset, _, err := IssueReset(testUser(), secret)
	require.NoError(t, err)

	claims, err := Parse(refresh, secret, AudienceAccess)
	require.ErrorIs(t, err, ErrWrongAudience)
	require.Nil(t, claims)

	claims, err = Parse(access, secret, AudienceRefresh)
	require.ErrorIs(t, err, ErrWrongAudience)
	require.Nil(t, claims)

	claims, err = Parse(reset, secret, AudienceAccess)
	require.ErrorIs(t, err, ErrWrongAudience)
	require.Nil(t, claims)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	claims := Claims{
		UserID: 7,
		Email:  "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	got, err := Parse(expired, secret, AudienceAccess)
	require.Error(t, err)
	require.Nil(t, got)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := IssueAccess(testUser(), secret)
	require.NoError(t, err)

	got, err := Parse(token, []byte("other-secret"), AudienceAccess)
	require.Error(t, err)
	require.Nil(t, got)
}

func TestParseRejectsWrongAlg(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{AudienceAccess},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	got, err := Parse(unsigned, secret, AudienceAccess)
	require.Error(t, err)
	require.Nil(t, got)
}
