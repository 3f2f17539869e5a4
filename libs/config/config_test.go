package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort(t *testing.T) {
	t.Setenv("SERVLY_TEST_PORT", "70000")
	_, err := Port("SERVLY_TEST_PORT", "8080")
	require.Error(t, err)

	t.Setenv("SERVLY_TEST_PORT", "")
	p, err := Port("SERVLY_TEST_PORT", "8080")
	require.NoError(t, err)
	assert.Equal(t, "8080", p)
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("SERVLY_TEST_INT", "42")
	t.Setenv("SERVLY_TEST_BAD_INT", "forty")
	t.Setenv("SERVLY_TEST_BOOL", "yes")
	t.Setenv("SERVLY_TEST_SECONDS", "3")
	t.Setenv("SERVLY_TEST_DURATION", "250ms")
	t.Setenv("SERVLY_TEST_LIST", " a, ,b ,c")

	assert.Equal(t, 42, Int("SERVLY_TEST_INT", 1))
	assert.Equal(t, 1, Int("SERVLY_TEST_BAD_INT", 1))
	assert.True(t, Bool("SERVLY_TEST_BOOL", false))
	assert.True(t, Bool("SERVLY_TEST_UNSET_BOOL", true))
	assert.Equal(t, 3*time.Second, Duration("SERVLY_TEST_SECONDS", time.Second))
	assert.Equal(t, 250*time.Millisecond, Duration("SERVLY_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, List("SERVLY_TEST_LIST", ""))
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SERVLY_DOTENV_ONLY=from-file\nSERVLY_DOTENV_SET=from-file\n"), 0o600))

	t.Setenv("SERVLY_DOTENV_SET", "from-env")
	t.Setenv("SERVLY_DOTENV_ONLY", "")
	require.NoError(t, os.Unsetenv("SERVLY_DOTENV_ONLY"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SERVLY_DOTENV_ONLY"))
	assert.Equal(t, "from-env", os.Getenv("SERVLY_DOTENV_SET"))
}
