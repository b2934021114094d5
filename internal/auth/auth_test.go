package auth

import (
	"testing"
	"time"

	"booking-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	a, err := NewAuthenticator("s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, "token", a.CookieName())

	token, err := a.Issue(models.Principal{ID: "u-1", Role: models.RoleTaker}, time.Hour)
	require.NoError(t, err)

	p, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, models.RoleTaker, p.Role)
}

func TestParseRejects(t *testing.T) {
	a, _ := NewAuthenticator("s3cret", "token")
	other, _ := NewAuthenticator("other", "token")

	foreign, _ := other.Issue(models.Principal{ID: "u-1", Role: models.RoleTaker}, time.Hour)
	expired, _ := a.Issue(models.Principal{ID: "u-1", Role: models.RoleTaker}, -time.Minute)
	noRole, _ := a.Issue(models.Principal{ID: "u-1"}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-1", Role: "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	_, err := a.Parse("")
	assert.ErrorIs(t, err, ErrNoToken)

	for _, tok := range []string{"garbage", foreign, expired, noRole, none} {
		_, err := a.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	_, err := NewAuthenticator("", "token")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}
