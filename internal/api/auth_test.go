package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tboucheau/taskhive/internal/types"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("password")
	assert.NoError(t, err)
	assert.NotEqual(t, "password", hash)

	assert.True(t, verifyPassword(hash, "password"))
	assert.False(t, verifyPassword(hash, "wrong"))
}

func TestJwtRoundTrip(t *testing.T) {
	app := &TaskhiveApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession(types.User{Id: 42}, defaultJwtExpiration)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err)
	assert.Equal(t, 42, userId)
}

func TestExtractUserIdFromToken_Invalid(t *testing.T) {
	app := &TaskhiveApp{signingKey: []byte("test-signing-key")}

	t.Run("garbage token", func(t *testing.T) {
		_, err := app.extractUserIdFromToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := &TaskhiveApp{signingKey: []byte("other-key")}
		token, err := other.createJwtForSession(types.User{Id: 42}, defaultJwtExpiration)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 42}, -time.Minute)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err)
	})
}
