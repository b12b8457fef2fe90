package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "genealogy.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "./media", cfg.Blob.FSRoot)
	assert.Equal(t, "us-east-1", cfg.Blob.S3.Region)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GENEALOGY_STORAGE_DRIVER", "postgres")
	t.Setenv("GENEALOGY_STORAGE_POSTGRES_DSN", "postgres://localhost/tree")
	t.Setenv("GENEALOGY_BLOB_DRIVER", "s3")
	t.Setenv("GENEALOGY_BLOB_S3_BUCKET", "scans")
	t.Setenv("GENEALOGY_BLOB_S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/tree", cfg.Storage.PostgresDSN)
	assert.Equal(t, "s3", cfg.Blob.Driver)
	assert.Equal(t, "scans", cfg.Blob.S3.Bucket)
	assert.True(t, cfg.Blob.S3.PathStyle)
}

func TestLoadDotEnvDoesNotOverrideProcess(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("GENEALOGY_STORAGE_SQLITE_PATH=from-file.db\nGENEALOGY_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("GENEALOGY_LOG_LEVEL", "warn")
	t.Cleanup(func() { _ = os.Unsetenv("GENEALOGY_STORAGE_SQLITE_PATH") })

	cfg, err := Load(file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("GENEALOGY_LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("GENEALOGY_LOG_LEVEL", "info")
	t.Setenv("GENEALOGY_LOG_FORMAT", "xml")
	_, err = Load()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := Config{LogLevel: "debug", LogFormat: "json"}.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))
}
