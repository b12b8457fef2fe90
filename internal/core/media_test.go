package core

import (
	"context"
	"testing"

	"genealogycore/internal/blob"
	blobmemory "genealogycore/internal/infra/blob/memory"
	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaFixture(t *testing.T) (*Service, *blobmemory.Store, domain.Media) {
	t.Helper()
	blobs := blobmemory.New()
	svc := newTestService(t, WithBlobStore(blobs))
	mustPerson(t, svc, "p1", "Alice", "Smith")
	media, err := svc.Media.Create(context.Background(), domain.Media{
		Base:      domain.Base{ID: "m1"},
		OwnerType: domain.EntityPerson,
		OwnerID:   "p1",
		FileName:  "portrait.jpg",
	})
	require.NoError(t, err)
	return svc, blobs, media
}

func TestAttachAndReadMediaData(t *testing.T) {
	ctx := context.Background()
	svc, blobs, media := newMediaFixture(t)

	saved, err := svc.AttachMediaData(ctx, media.ID, 1, MediaPayload{
		File: []byte("jpeg bytes"), FileType: "image/jpeg",
		Thumbnail: []byte("thumb"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.EqualValues(t, 10, saved.FileSize)
	assert.Equal(t, "image/jpeg", saved.MimeType)
	assert.Equal(t, blob.Key("m1", blob.RoleFile, saved.Checksum), saved.FileKey)
	assert.NotEmpty(t, saved.ThumbnailKey)

	withData, err := svc.GetMediaWithData(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), withData.File)
	assert.Equal(t, []byte("thumb"), withData.Thumbnail)
	assert.Equal(t, saved, withData.Media)

	listed, err := svc.Media.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, saved.FileKey, listed.FileKey)

	replaced, err := svc.AttachMediaData(ctx, "m1", 2, MediaPayload{File: []byte("new scan")})
	require.NoError(t, err)
	assert.Equal(t, saved.ThumbnailKey, replaced.ThumbnailKey)
	assert.NotEqual(t, saved.FileKey, replaced.FileKey)

	keys, err := blobs.List(ctx, "media/m1/")
	require.NoError(t, err)
	require.Len(t, keys, 3, "superseded file stays for restore points")

	history, err := svc.Media.History(ctx, "m1", domain.PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, history.Total)
}

func TestRollbackMediaRestoresReadablePayload(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMediaFixture(t)

	_, err := svc.AttachMediaData(ctx, "m1", 1, MediaPayload{File: []byte("first scan")})
	require.NoError(t, err)
	_, err = svc.AttachMediaData(ctx, "m1", 2, MediaPayload{File: []byte("second scan")})
	require.NoError(t, err)

	result, err := svc.Media.Rollback(ctx, "m1", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, result.NewVersion)
	assert.Contains(t, result.Changes, "file_key")

	withData, err := svc.GetMediaWithData(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []byte("first scan"), withData.File)
}

func TestAttachMediaDataConflictLeavesNoPayload(t *testing.T) {
	ctx := context.Background()
	svc, blobs, _ := newMediaFixture(t)

	_, err := svc.AttachMediaData(ctx, "m1", 7, MediaPayload{File: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	keys, err := blobs.List(ctx, "media/")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = svc.AttachMediaData(ctx, "missing", 1, MediaPayload{File: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeletingMediaPrunesPayloads(t *testing.T) {
	ctx := context.Background()
	svc, blobs, _ := newMediaFixture(t)
	saved, err := svc.AttachMediaData(ctx, "m1", 1, MediaPayload{File: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, svc.Media.Delete(ctx, "m1", saved.Version))
	keys, err := blobs.List(ctx, "media/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMediaDataWithoutBlobStore(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.AttachMediaData(ctx, "m1", 1, MediaPayload{File: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.GetMediaWithData(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteOwnerPrunesMediaPayloads(t *testing.T) {
	ctx := context.Background()
	svc, blobs, _ := newMediaFixture(t)
	_, err := svc.AttachMediaData(ctx, "m1", 1, MediaPayload{File: []byte("scan"), Thumbnail: []byte("thumb")})
	require.NoError(t, err)

	require.NoError(t, svc.Persons.Delete(ctx, "p1", 1))

	_, err = svc.Media.Get(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	keys, err := blobs.List(ctx, "media/m1/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
