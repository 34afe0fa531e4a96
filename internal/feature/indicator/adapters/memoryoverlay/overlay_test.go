package memoryoverlay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeptrust/internal/feature/indicator/domain/entity"
)

func TestOverlay_DrawRemove(t *testing.T) {
	t.Parallel()

	o := New()
	ctx := context.Background()

	first, err := o.Draw(ctx, entity.Badge{SourceURL: "a", Score: 1})
	require.NoError(t, err)
	second, err := o.Draw(ctx, entity.Badge{SourceURL: "b", Score: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Len(t, o.Badges(), 2)

	require.NoError(t, o.Remove(ctx, first))
	badges := o.Badges()
	require.Len(t, badges, 1)
	assert.Equal(t, "b", badges[0].SourceURL)

	assert.ErrorIs(t, o.Remove(ctx, first), ErrNotFound)
}
