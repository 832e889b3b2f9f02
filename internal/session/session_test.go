package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_AbsentWhenNoFile(t *testing.T) {
	s, err := Load(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, StateAbsent, s.State())

	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSession_PersistAndReload(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SetTokens("access-123", "refresh-456"))
	assert.Equal(t, StateValid, s.State())

	reloaded, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, StateValid, reloaded.State())

	tok, err := reloaded.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok)
	assert.Equal(t, "refresh-456", reloaded.RefreshToken())
}

func TestSession_InvalidateRemovesPersistedPair(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SetTokens("access-123", ""))

	s.Invalidate()
	assert.Equal(t, StateInvalidated, s.State())
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNoSession)

	// Invalidation is durable across process restarts.
	reloaded, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, StateAbsent, reloaded.State())
}

func TestSession_CorruptFileTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SetTokens("x", ""))

	// Overwrite with garbage
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("not-json"), 0o600))

	reloaded, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, StateAbsent, reloaded.State())
}

func TestSession_LooksExpired(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, zap.NewNop())
	require.NoError(t, err)

	expired := signedToken(t, time.Now().Add(-time.Hour))
	require.NoError(t, s.SetTokens(expired, ""))
	assert.True(t, s.LooksExpired(time.Now()))

	fresh := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, s.SetTokens(fresh, ""))
	assert.False(t, s.LooksExpired(time.Now()))

	// Opaque (non-JWT) tokens never look expired locally.
	require.NoError(t, s.SetTokens("opaque-token", ""))
	assert.False(t, s.LooksExpired(time.Now()))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin@example.com",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
