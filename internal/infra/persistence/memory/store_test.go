package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracecore/pkg/domain"
)

func TestStoreRoundTripIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	in := domain.Snapshot{
		Requirements: []domain.Requirement{{ID: "r1", Key: "REQ-0001", Tags: []string{"auth"}}},
		Metadata:     domain.Metadata{KeyCounter: 1},
	}
	require.NoError(t, store.Save(ctx, in))
	in.Requirements[0].Tags[0] = "mutated"

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out.Requirements, 1)
	assert.Equal(t, "auth", out.Requirements[0].Tags[0])

	out.Requirements[0].Title = "changed by caller"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Requirements[0].Title)
	assert.Equal(t, 1, store.Saves())
	assert.True(t, store.HasWorkspace())
}

func TestNewStoreSeed(t *testing.T) {
	store := NewStore(domain.Snapshot{Metadata: domain.Metadata{KeyCounter: 9}})
	s, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, s.Metadata.KeyCounter)
	assert.Zero(t, store.Saves())
}
