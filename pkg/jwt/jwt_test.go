package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	manager := NewManager("secret", time.Hour, "learnsphere")

	token, err := manager.Generate("stu1", "Alice", "student")
	require.NoError(t, err)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "stu1", claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "student", claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour, "learnsphere").Generate("stu1", "Alice", "student")
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour, "learnsphere").Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	token, err := NewManager("secret", -time.Minute, "learnsphere").Generate("stu1", "Alice", "student")
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour, "learnsphere").Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewManager("secret", time.Hour, "learnsphere").Validate("not-a-token")
	assert.Error(t, err)
}
