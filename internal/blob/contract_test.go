package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"genealogycore/internal/blob"
	"genealogycore/internal/infra/blob/fs"
	"genealogycore/internal/infra/blob/memory"
	"genealogycore/internal/infra/blob/s3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]blob.Store {
	t.Helper()
	fsStore, err := fs.New(t.TempDir())
	require.NoError(t, err)
	s3Store, err := s3.NewFake(context.Background())
	require.NoError(t, err)
	return map[string]blob.Store{
		"memory": memory.New(),
		"fs":     fsStore,
		"s3":     s3Store,
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Head(ctx, "media/m1/file/abc")
			assert.ErrorIs(t, err, blob.ErrNotFound)
			_, _, err = store.Get(ctx, "media/m1/file/abc")
			assert.ErrorIs(t, err, blob.ErrNotFound)
			existed, err := store.Delete(ctx, "media/m1/file/abc")
			require.NoError(t, err)
			assert.False(t, existed)

			info, err := store.Put(ctx, "media/m1/file/abc", bytes.NewReader([]byte("portrait")), blob.PutOptions{ContentType: "image/jpeg"})
			require.NoError(t, err)
			assert.Equal(t, "media/m1/file/abc", info.Key)
			assert.EqualValues(t, 8, info.Size)
			assert.Equal(t, "image/jpeg", info.ContentType)
			assert.NotEmpty(t, info.ETag)

			_, err = store.Put(ctx, "media/m1/file/abc", bytes.NewReader([]byte("other")), blob.PutOptions{})
			assert.ErrorIs(t, err, blob.ErrExists)

			_, err = store.Put(ctx, "media/m2/thumbnail/def", bytes.NewReader([]byte("thumb")), blob.PutOptions{})
			require.NoError(t, err)

			got, rc, err := store.Get(ctx, "media/m1/file/abc")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			require.NoError(t, rc.Close())
			require.NoError(t, err)
			assert.Equal(t, "portrait", string(body))
			assert.EqualValues(t, 8, got.Size)

			all, err := store.List(ctx, "media/")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "media/m1/file/abc", all[0].Key)
			assert.Equal(t, "media/m2/thumbnail/def", all[1].Key)

			some, err := store.List(ctx, "media/m2/")
			require.NoError(t, err)
			require.Len(t, some, 1)

			existed, err = store.Delete(ctx, "media/m1/file/abc")
			require.NoError(t, err)
			assert.True(t, existed)
			_, err = store.Head(ctx, "media/m1/file/abc")
			assert.ErrorIs(t, err, blob.ErrNotFound)
		})
	}
}

func TestPresign(t *testing.T) {
	ctx := context.Background()
	stores := backends(t)

	_, err := stores["memory"].PresignURL(ctx, "k", blob.SignedURLOptions{})
	assert.ErrorIs(t, err, blob.ErrUnsupported)

	for _, name := range []string{"fs", "s3"} {
		store := stores[name]
		_, err := store.Put(ctx, "media/m1/file/abc", bytes.NewReader([]byte("x")), blob.PutOptions{})
		require.NoError(t, err, name)
		url, err := store.PresignURL(ctx, "media/m1/file/abc", blob.SignedURLOptions{})
		require.NoError(t, err, name)
		assert.Contains(t, url, "media/m1/file/abc", name)
		_, err = store.PresignURL(ctx, "media/m1/file/abc", blob.SignedURLOptions{Method: "PUT"})
		assert.ErrorIs(t, err, blob.ErrUnsupported, name)
	}
}

func TestFilesystemRejectsEscapingKeys(t *testing.T) {
	store, err := fs.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "../up", "a/../../b", "a.meta"} {
		_, err := store.Put(ctx, key, bytes.NewReader(nil), blob.PutOptions{})
		assert.Error(t, err, key)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestPutReadFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"memory", "fs"} {
		store := backends(t)[name]
		_, err := store.Put(ctx, "media/m1/file/x", failingReader{}, blob.PutOptions{})
		require.Error(t, err, name)
		_, err = store.Head(ctx, "media/m1/file/x")
		assert.ErrorIs(t, err, blob.ErrNotFound, name)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := blob.Open(ctx, blob.Config{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, blob.DriverMemory, store.Driver())

	store, err = blob.Open(ctx, blob.Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, blob.DriverFilesystem, store.Driver())

	_, err = blob.Open(ctx, blob.Config{Driver: "s3"})
	assert.Error(t, err)

	_, err = blob.Open(ctx, blob.Config{Driver: "tape"})
	assert.Error(t, err)
}
