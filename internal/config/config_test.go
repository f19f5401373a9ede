package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "./downloads", cfg.Merge.OutputDir)
	assert.Equal(t, "aac", cfg.Merge.AudioCodec)
	assert.Equal(t, time.Second, cfg.Merge.CleanupDelay)
	assert.Equal(t, 0, cfg.Merge.MaxConcurrent)
	assert.Equal(t, 5, cfg.Media.MaxVideoOptions)
	assert.Equal(t, 3, cfg.Media.MaxAudioOptions)
	assert.Equal(t, time.Duration(0), cfg.Jobs.TTL)
	assert.Empty(t, cfg.Redis.Addr)

	info, err := os.Stat(filepath.Join(dir, "downloads"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	out := filepath.Join(dir, "out")

	t.Setenv("PORT", "8080")
	t.Setenv("OUTPUT_DIR", out)
	t.Setenv("PUBLIC_URL", "http://10.0.2.2:3000/")
	t.Setenv("JOB_TTL_MINUTES", "30")
	t.Setenv("MAX_CONCURRENT_MERGES", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, out, cfg.Merge.OutputDir)
	assert.Equal(t, "http://10.0.2.2:3000", cfg.Server.PublicURL)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.TTL)
	assert.Equal(t, 2, cfg.Merge.MaxConcurrent)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")

	path := filepath.Join(dir, "server.yaml")
	content := "server:\n  port: \"4000\"\nmerge:\n  output_dir: " + filepath.Join(dir, "files") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "files"), cfg.Merge.OutputDir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestReadSecret(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("s3cret\n"), 0o600))

	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_PASSWORD_FILE", secret)

	readSecret("REDIS_PASSWORD")
	assert.Equal(t, "s3cret", os.Getenv("REDIS_PASSWORD"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MERGE_TEST_FROM_FILE=yes\nMERGE_TEST_PRESET=file\n"), 0o644))

	t.Setenv("MERGE_TEST_FROM_FILE", "")
	os.Unsetenv("MERGE_TEST_FROM_FILE")
	t.Setenv("MERGE_TEST_PRESET", "env")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "yes", os.Getenv("MERGE_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("MERGE_TEST_PRESET"))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
