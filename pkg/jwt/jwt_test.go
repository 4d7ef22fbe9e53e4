package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := Generate("s3cret", "u-42", "MANAGER", "smart-erp", 5)
	require.NoError(t, err)

	claims, err := Parse("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.UserID)
	assert.Equal(t, "MANAGER", claims.Role)
	assert.Equal(t, "smart-erp", claims.Issuer)
}

func TestParseRejects(t *testing.T) {
	token, err := Generate("s3cret", "u-42", "OWNER", "smart-erp", 5)
	require.NoError(t, err)

	_, err = Parse("other", token)
	assert.Error(t, err)

	expired, err := Generate("s3cret", "u-42", "OWNER", "smart-erp", -1)
	require.NoError(t, err)
	_, err = Parse("s3cret", expired)
	assert.Error(t, err)

	_, err = Parse("", token)
	assert.Error(t, err)

	_, err = Generate("", "u-42", "OWNER", "smart-erp", 5)
	assert.Error(t, err)
}
