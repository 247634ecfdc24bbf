package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func withEnvFile(t *testing.T, path string) *cobra.Command {
	t.Helper()
	prev := envFile
	envFile = path
	t.Cleanup(func() { envFile = prev })
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))

	// restored by t.Setenv's cleanup
	t.Setenv("ENV", "")
	require.NoError(t, os.Unsetenv("ENV"))

	c := &cobra.Command{}
	c.Flags().StringVar(&envFile, "env-file", path, "")
	return c
}

func TestLoadEnvInstallsLoggerFromDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENV=local\n"), 0o600))
	c := withEnvFile(t, path)

	require.NoError(t, loadEnv(c))

	assert.Equal(t, "local", os.Getenv("ENV"))
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))
}

func TestLoadEnvMissingDefaultFile(t *testing.T) {
	c := withEnvFile(t, filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, loadEnv(c))
	assert.True(t, zap.L().Core().Enabled(zapcore.InfoLevel))
}

func TestLoadEnvMissingExplicitFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")
	c := withEnvFile(t, missing)
	require.NoError(t, c.Flags().Set("env-file", missing))

	assert.Error(t, loadEnv(c))
}
