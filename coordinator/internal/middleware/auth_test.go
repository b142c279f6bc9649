package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth_MintAndValidate(t *testing.T) {
	auth := NewAdminAuth("secret")

	token, err := auth.Mint("admin", time.Hour)
	require.NoError(t, err)

	claims, err := auth.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "gridstream-coordinator", claims.Issuer)
}

func TestAdminAuth_RejectsExpired(t *testing.T) {
	auth := NewAdminAuth("secret")

	token, err := auth.Mint("admin", -time.Minute)
	require.NoError(t, err)

	_, err = auth.Validate(token)
	assert.Error(t, err)
}

func TestAdminAuth_RejectsForeignSecret(t *testing.T) {
	token, err := NewAdminAuth("secret-a").Mint("admin", time.Hour)
	require.NoError(t, err)

	_, err = NewAdminAuth("secret-b").Validate(token)
	assert.Error(t, err)
}
