package object

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracecore/internal/blob"
	"tracecore/pkg/domain"
)

func TestSnapshotObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store := New(blobs, "")
	assert.Equal(t, DefaultKey, store.Key())

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	in := domain.Snapshot{
		Requirements: []domain.Requirement{{ID: "r1", Key: "REQ-0001"}, {ID: "r2", Key: "REQ-0002"}},
		Metadata:     domain.Metadata{KeyCounter: 2},
	}
	require.NoError(t, store.Save(ctx, in))
	require.NoError(t, store.Save(ctx, in), "second save overwrites")

	info, err := blobs.Head(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "2", info.Metadata["records"])

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Requirements, 2)
	assert.Equal(t, 2, out.Metadata.KeyCounter)
}

func TestLoadCorruptObject(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	_, err := blobs.Put(ctx, "ws.json", bytes.NewReader([]byte("nope")), blob.PutOptions{})
	require.NoError(t, err)
	_, err = New(blobs, "ws.json").Load(ctx)
	require.ErrorContains(t, err, "decode ws.json")
}

func TestFilesystemBackedStore(t *testing.T) {
	ctx := context.Background()
	blobs, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()})
	require.NoError(t, err)
	store := New(blobs, "ws/snapshot.json")
	require.NoError(t, store.Save(ctx, domain.Snapshot{Metadata: domain.Metadata{ActiveProjectID: "p9"}}))
	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p9", out.Metadata.ActiveProjectID)
}
