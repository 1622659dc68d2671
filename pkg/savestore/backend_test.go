package savestore

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "save:player:1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, b.Put(ctx, "save:player:1", []byte("v1")))
	require.NoError(t, b.Put(ctx, "save:player:1", []byte("v2")))

	blob, err := b.Get(ctx, "save:player:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), blob)

	require.NoError(t, b.Delete(ctx, "save:player:1"))
	assert.True(t, errors.Is(b.Delete(ctx, "save:player:1"), ErrNotFound))

	require.NoError(t, b.Close())
}

func TestRedisBackend(t *testing.T) {
	fake := newFakeRedis()
	b := newRedisBackend(fake, time.Hour)
	exerciseBackend(t, b)
	assert.True(t, fake.closed)

	require.NoError(t, b.Put(context.Background(), "k", []byte("x")))
	assert.Equal(t, time.Hour, fake.ttls["k"])
}

func TestNewRedisBackendRequiresAddrs(t *testing.T) {
	_, err := NewRedisBackend(RedisConfig{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestPostgresBackend(t *testing.T) {
	fake := newFakePG()
	b, err := newPostgresBackend(fake, "", time.Second)
	require.NoError(t, err)

	require.NoError(t, b.EnsureSchema(context.Background()))
	assert.Contains(t, fake.queries[0], "CREATE TABLE IF NOT EXISTS save_blobs")

	exerciseBackend(t, b)

	assert.Contains(t, fake.queries, "SELECT blob FROM save_blobs WHERE key = $1")
	assert.Contains(t, fake.queries, "DELETE FROM save_blobs WHERE key = $1")
	var insert string
	for _, q := range fake.queries {
		if len(q) > 6 && q[:6] == "INSERT" {
			insert = q
			break
		}
	}
	assert.Equal(t, "INSERT INTO save_blobs (key,blob,updated_at) VALUES ($1,$2,now()) "+
		"ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at", insert)
}

func TestPostgresBackendTableName(t *testing.T) {
	_, err := newPostgresBackend(newFakePG(), "saves; DROP TABLE users", 0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	b, err := newPostgresBackend(newFakePG(), "island_saves", 0)
	require.NoError(t, err)
	assert.Equal(t, "island_saves", b.table)

	_, err = NewPostgresBackend(context.Background(), PostgresConfig{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
