package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_IssueAndParse(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New()

	tokenID, token, err := svc.Issue(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenID)
	assert.NotEmpty(t, token)

	gotUser, gotTokenID, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, tokenID, gotTokenID)
}

func TestJWTService_IssueIsUniquePerCall(t *testing.T) {
	svc := NewJWTService("test-secret")
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	userID := uuid.New()

	id1, tok1, err := svc.Issue(userID)
	require.NoError(t, err)
	id2, tok2, err := svc.Issue(userID)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, tok1, tok2)
}

func TestJWTService_ParseRejects(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New()
	_, otherSigned, err := NewJWTService("other-secret").Issue(userID)
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{Subject: userID.String()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{Subject: "42", ID: "x"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &jwt.RegisteredClaims{Subject: userID.String(), ID: "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", otherSigned},
		{"missing token id", noID},
		{"non uuid subject", badSubject},
		{"none algorithm", noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotTokenID, err := svc.Parse(tt.token)
			assert.Error(t, err)
			assert.Equal(t, uuid.Nil, gotUser)
			assert.Empty(t, gotTokenID)
		})
	}
}
