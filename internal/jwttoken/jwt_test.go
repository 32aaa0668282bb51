package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "medledger-test")
	staffID := id.NewStaffID()

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.GenerateToken(staffID, time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, staffID, claims.StaffID)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := svc.GenerateToken(staffID, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		other := NewService("other-key", "medledger-test")
		token, err := other.GenerateToken(staffID, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
