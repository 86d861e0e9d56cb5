package detached

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracecore/pkg/domain"
)

func TestDetachedDiscardsSaves(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, domain.Snapshot{Metadata: domain.Metadata{KeyCounter: 3}}))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.False(t, s.HasWorkspace())
}
