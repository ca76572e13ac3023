package services

import (
	"testing"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func seedActivatedUser(utorid, password string) models.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	user := models.User{
		Utorid:   utorid,
		Name:     "Test " + utorid,
		Email:    utorid + "@mail.utoronto.ca",
		Password: string(hashed),
		Role:     models.RoleRegular,
		Verified: true,
	}
	database.DB.Create(&user)
	return user
}

func TestAuthenticate(t *testing.T) {
	setupTestDB()

	seedActivatedUser("loginusr", "Str0ng!pass")

	token, expiresAt, err := Authenticate("loginusr", "Str0ng!pass")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	// Login time is recorded.
	var user models.User
	database.DB.Where("utorid = ?", "loginusr").First(&user)
	assert.NotNil(t, user.LastLogin)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	setupTestDB()

	seedActivatedUser("loginusr", "Str0ng!pass")

	_, _, err := Authenticate("loginusr", "WrongPass1!")
	assert.Equal(t, KindForbidden, KindOf(err))

	_, _, err = Authenticate("ghostusr", "Str0ng!pass")
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestAuthenticateUnactivatedAccount(t *testing.T) {
	setupTestDB()

	// Registered but never activated, so there is no password yet.
	_, err := RegisterUser(RegisterRequest{
		Utorid: "freshman", Name: "Fresh", Email: "fresh@mail.utoronto.ca",
	})
	assert.NoError(t, err)

	_, _, err = Authenticate("freshman", "Anything1!")
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestPasswordResetFlow(t *testing.T) {
	setupTestDB()

	seedActivatedUser("resetusr", "Old!pass123")

	token, err := RequestPasswordReset("resetusr")
	assert.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	// A second request invalidates the first token.
	fresh, err := RequestPasswordReset("resetusr")
	assert.NoError(t, err)

	err = ResetPassword(token.Token, "resetusr", "New!pass123")
	assert.Equal(t, KindBadPayload, KindOf(err))

	// The token must belong to the named user.
	seedActivatedUser("otherusr", "Str0ng!pass")
	err = ResetPassword(fresh.Token, "otherusr", "New!pass123")
	assert.Equal(t, KindForbidden, KindOf(err))

	assert.NoError(t, ResetPassword(fresh.Token, "resetusr", "New!pass123"))

	_, _, err = Authenticate("resetusr", "New!pass123")
	assert.NoError(t, err)
	_, _, err = Authenticate("resetusr", "Old!pass123")
	assert.Equal(t, KindForbidden, KindOf(err))

	// Tokens are single-use.
	err = ResetPassword(fresh.Token, "resetusr", "Another1!")
	assert.Equal(t, KindBadPayload, KindOf(err))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	setupTestDB()

	user := seedActivatedUser("resetusr", "Old!pass123")

	stale := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	database.DB.Create(&stale)

	err := ResetPassword("stale-token", "resetusr", "New!pass123")
	assert.Equal(t, KindBadPayload, KindOf(err))

	err = ResetPassword("no-such-token", "resetusr", "New!pass123")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRequestPasswordResetUnknownUser(t *testing.T) {
	setupTestDB()

	_, err := RequestPasswordReset("ghostusr")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTokenDenylist(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	assert.NoError(t, AddToDenylist("some.jwt.token", time.Minute))

	denied, err := IsDenylisted("some.jwt.token")
	assert.NoError(t, err)
	assert.True(t, denied)

	allowed, err := IsDenylisted("another.jwt.token")
	assert.NoError(t, err)
	assert.False(t, allowed)

	// The entry expires with the token itself.
	mr.FastForward(2 * time.Minute)
	denied, err = IsDenylisted("some.jwt.token")
	assert.NoError(t, err)
	assert.False(t, denied)
}
