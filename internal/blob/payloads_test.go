package blob_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"genealogycore/internal/blob"
	"genealogycore/internal/infra/blob/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadsPutIsContentAddressed(t *testing.T) {
	ctx := context.Background()
	payloads := blob.NewPayloads(memory.New())

	sum := sha256.Sum256([]byte("scan"))
	stored, err := payloads.Put(ctx, "m1", blob.RoleFile, []byte("scan"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.Checksum)
	assert.Equal(t, "media/m1/file/"+stored.Checksum, stored.Key)
	assert.EqualValues(t, 4, stored.Size)

	again, err := payloads.Put(ctx, "m1", blob.RoleFile, []byte("scan"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, stored, again)

	data, err := payloads.Read(ctx, stored.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("scan"), data)

	empty, err := payloads.Read(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = payloads.Put(ctx, "a/b", blob.RoleFile, []byte("x"), "")
	assert.Error(t, err)
}

func TestPayloadsPrune(t *testing.T) {
	ctx := context.Background()
	payloads := blob.NewPayloads(memory.New())

	oldFile, err := payloads.Put(ctx, "m1", blob.RoleFile, []byte("v1"), "")
	require.NoError(t, err)
	newFile, err := payloads.Put(ctx, "m1", blob.RoleFile, []byte("v2"), "")
	require.NoError(t, err)
	thumb, err := payloads.Put(ctx, "m1", blob.RoleThumbnail, []byte("t"), "")
	require.NoError(t, err)
	other, err := payloads.Put(ctx, "m10", blob.RoleFile, []byte("v1"), "")
	require.NoError(t, err)

	removed, err := payloads.Prune(ctx, "m1", newFile.Key, thumb.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = payloads.Read(ctx, oldFile.Key)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	_, err = payloads.Read(ctx, other.Key)
	assert.NoError(t, err)
}
