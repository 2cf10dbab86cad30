package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("secret")
	projectID := int64(9)

	token, err := svc.Issue(Claims{UserID: 3, Email: "a@b.c", Role: "Lead", ProjectID: &projectID}, time.Hour)
	require.NoError(t, err)

	claims, ok := svc.Verify(token)
	require.True(t, ok)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "Lead", claims.Role)
	assert.Equal(t, "3", claims.Subject)
	require.NotNil(t, claims.ProjectID)
	assert.Equal(t, projectID, *claims.ProjectID)
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := &service{secret: []byte("secret"), now: time.Now}
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := s.Issue(Claims{UserID: 1, Role: "Member"}, time.Hour)
	require.NoError(t, err)

	s.now = time.Now
	_, ok := s.Verify(token)
	assert.False(t, ok)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewService("one").Issue(Claims{UserID: 1}, time.Hour)
	require.NoError(t, err)

	_, ok := NewService("two").Verify(token)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	svc := NewService("secret")
	for _, token := range []string{"", "abc", strings.Repeat("x.", 3)} {
		_, ok := svc.Verify(token)
		assert.False(t, ok, token)
	}
}
