package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	iss := NewIssuer("test-secret-key", time.Hour)

	token, expiresAt, err := iss.Issue("trip-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	tripID, err := iss.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "trip-1", tripID)
}

func TestValidateRejects(t *testing.T) {
	iss := NewIssuer("test-secret-key", time.Hour)
	token, _, err := iss.Issue("trip-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{"Wrong secret", NewIssuer("other-secret", time.Hour), token},
		{"Garbage", iss, "not-a-token"},
		{"Empty", iss, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateExpired(t *testing.T) {
	iss := NewIssuer("test-secret-key", time.Minute)
	start := time.Now()
	iss.now = func() time.Time { return start }

	token, _, err := iss.Issue("trip-1")
	require.NoError(t, err)

	iss.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = iss.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	iss := NewIssuer("test-secret-key", 0)
	claims := Claims{TripID: "trip-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNoExpiry(t *testing.T) {
	iss := NewIssuer("test-secret-key", 0)
	token, expiresAt, err := iss.Issue("trip-2")
	require.NoError(t, err)
	assert.True(t, expiresAt.IsZero())

	tripID, err := iss.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "trip-2", tripID)
}
