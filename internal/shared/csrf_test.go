package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)

	m.Rotate(sess)
	rotated, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.NotEqual(t, token, rotated)
}

func TestCSRFRequiresSession(t *testing.T) {
	m := NewCSRFManager("secret")
	_, err := m.EnsureToken(context.Background(), nil)
	assert.Error(t, err)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), nil, "x"), ErrCSRFTokenMissing)
}
