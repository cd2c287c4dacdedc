package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "kg", cfg.DefaultUnit)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SeedOnStart)
	assert.False(t, cfg.TasksEnabled)
	assert.Equal(t, 1.0, cfg.PriceJitter)
	assert.Equal(t, "8080", cfg.ApiPort)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := Load("api")
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoad_MongoRequiresURI(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load("api")
	assert.ErrorContains(t, err, "MONGO_URI")
}

func TestLoad_MySQLRequiresDSN(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "MySQL")
	t.Setenv("MYSQL_DSN", "")
	_, err := Load("api")
	assert.ErrorContains(t, err, "MYSQL_DSN")

	t.Setenv("MYSQL_DSN", "agri:agri@tcp(localhost:3306)/agri")
	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, BackendMySQL, cfg.StoreBackend)
}

func TestLoad_S3Backend(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "s3")
	t.Setenv("S3_ENDPOINT", "")
	_, err := Load("api")
	assert.ErrorContains(t, err, "S3_ENDPOINT")

	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_USE_SSL", "true")
	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "agri", cfg.S3Bucket)
	assert.True(t, cfg.S3UseSSL)

	t.Setenv("S3_USE_SSL", "sometimes")
	_, err = Load("api")
	assert.ErrorContains(t, err, "S3_USE_SSL")
}

func TestLoad_TasksRequireSharedStore(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("TASKS_ENABLED", "true")

	for _, mode := range []string{"api", "bg", "all"} {
		_, err := Load(mode)
		assert.ErrorContains(t, err, "TASKS_ENABLED requires a shared STORE_BACKEND", mode)
	}

	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", ":memory:")
	_, err := Load("all")
	assert.ErrorContains(t, err, "TASKS_ENABLED requires a shared STORE_BACKEND")

	t.Setenv("SQLITE_PATH", "agri.db")
	cfg, err := Load("all")
	require.NoError(t, err)
	assert.True(t, cfg.TasksEnabled)

	t.Setenv("STORE_BACKEND", "redis")
	cfg, err = Load("bg")
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORE_BACKEND":          "etcd",
		"REDIS_DB":               "one",
		"SESSION_TTL_SECONDS":    "soon",
		"SEED_ON_START":          "maybe",
		"PRICE_JITTER":           "lots",
		"RATE_LIMIT_BUCKET_SIZE": "big",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("SESSION_SECRET", "s3cret")
			t.Setenv(key, value)
			_, err := Load("api")
			assert.ErrorContains(t, err, key)
		})
	}
}
