package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeptrust/internal/feature/indicator/adapters/memoryoverlay"
	"deeptrust/internal/feature/indicator/domain/entity"
	"deeptrust/internal/feature/indicator/usecase"
	"deeptrust/internal/shared/media"
)

// mockHandle はElementHandleのモック実装です。
type mockHandle struct {
	rect media.Rect
	err  error
}

func (m *mockHandle) Bounds(ctx context.Context) (media.Rect, error) {
	return m.rect, m.err
}

// mapLookup はURLをキーにしたMediaLookupです。
type mapLookup map[string]media.DetectionRecord

func (m mapLookup) Find(sourceURL string) (media.DetectionRecord, bool) {
	r, ok := m[sourceURL]
	return r, ok
}

// failingOverlay はDrawが失敗するOverlayです。
type failingOverlay struct{}

func (failingOverlay) Draw(ctx context.Context, badge entity.Badge) (string, error) {
	return "", errors.New("page closed")
}

func (failingOverlay) Remove(ctx context.Context, id string) error { return nil }

const imageURL = "https://example.com/a.jpg"

func newLookup(h media.ElementHandle) mapLookup {
	return mapLookup{imageURL: {MediaType: media.Image, SourceURL: imageURL, Element: h}}
}

func TestRenderer_ShowResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		score         int
		expectedColor string
		expectedSev   media.Severity
	}{
		{"high", 91, "#ff4444", media.SeverityHigh},
		{"medium", 67, "#ff9944", media.SeverityMedium},
		{"boundary 70 is medium", 70, "#ff9944", media.SeverityMedium},
		{"boundary 40 is low", 40, "#44ff44", media.SeverityLow},
		{"low", 23, "#44ff44", media.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			overlay := memoryoverlay.New()
			handle := &mockHandle{rect: media.Rect{X: 10, Y: 1200, Width: 300, Height: 200}}
			r := usecase.NewRenderer(newLookup(handle), overlay, usecase.PolicyReplace, nil)

			require.NoError(t, r.ShowResult(context.Background(), imageURL, tt.score, "explanation"))

			badges := overlay.Badges()
			require.Len(t, badges, 1)
			assert.Equal(t, tt.expectedColor, badges[0].Color())
			assert.Equal(t, tt.expectedSev, badges[0].Severity)
			assert.Equal(t, entity.BadgeText(tt.score), badges[0].Text)
			assert.Equal(t, media.Rect{X: 10, Y: 1200, Width: 300, Height: 200}, badges[0].Rect)
		})
	}
}

func TestRenderer_BadgeText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "DeepTRUST: 91% fake", entity.BadgeText(91))
}

func TestRenderer_SanitizesExplanation(t *testing.T) {
	t.Parallel()

	overlay := memoryoverlay.New()
	r := usecase.NewRenderer(newLookup(&mockHandle{}), overlay, usecase.PolicyReplace, nil)

	require.NoError(t, r.ShowResult(context.Background(), imageURL, 50, `<script>alert(1)</script>Looks <b>edited</b>`))

	badges := overlay.Badges()
	require.Len(t, badges, 1)
	assert.Equal(t, "Looks edited", badges[0].Title)

	require.NoError(t, r.ShowResult(context.Background(), imageURL, 50, "It's 50% likely"))
	assert.Equal(t, "It's 50% likely", overlay.Badges()[0].Title)
}

func TestRenderer_NoOpCases(t *testing.T) {
	t.Parallel()

	t.Run("url not in detected list", func(t *testing.T) {
		t.Parallel()

		overlay := memoryoverlay.New()
		r := usecase.NewRenderer(newLookup(&mockHandle{}), overlay, usecase.PolicyReplace, nil)

		require.NoError(t, r.ShowResult(context.Background(), "https://example.com/other.jpg", 91, "x"))
		assert.Empty(t, overlay.Badges())
	})

	t.Run("element removed from document", func(t *testing.T) {
		t.Parallel()

		overlay := memoryoverlay.New()
		r := usecase.NewRenderer(newLookup(&mockHandle{err: media.ErrElementDetached}), overlay, usecase.PolicyReplace, nil)

		require.NoError(t, r.ShowResult(context.Background(), imageURL, 91, "x"))
		assert.Empty(t, overlay.Badges())
	})

	t.Run("record without element handle", func(t *testing.T) {
		t.Parallel()

		overlay := memoryoverlay.New()
		r := usecase.NewRenderer(newLookup(nil), overlay, usecase.PolicyReplace, nil)

		require.NoError(t, r.ShowResult(context.Background(), imageURL, 91, "x"))
		assert.Empty(t, overlay.Badges())
	})
}

func TestRenderer_RejectsOutOfRangeScore(t *testing.T) {
	t.Parallel()

	for _, score := range []int{-1, 101, 500} {
		overlay := memoryoverlay.New()
		r := usecase.NewRenderer(newLookup(&mockHandle{}), overlay, usecase.PolicyReplace, nil)

		err := r.ShowResult(context.Background(), imageURL, score, "x")
		assert.ErrorIs(t, err, media.ErrScoreOutOfRange, "score %d", score)
		assert.Empty(t, overlay.Badges())
	}
}

func TestRenderer_Policy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy         usecase.Policy
		expectedScores []int
	}{
		{usecase.PolicyReplace, []int{23}},
		{usecase.PolicyStack, []int{91, 23}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			t.Parallel()

			overlay := memoryoverlay.New()
			r := usecase.NewRenderer(newLookup(&mockHandle{}), overlay, tt.policy, nil)

			require.NoError(t, r.ShowResult(context.Background(), imageURL, 91, "first"))
			require.NoError(t, r.ShowResult(context.Background(), imageURL, 23, "second"))

			var scores []int
			for _, b := range overlay.Badges() {
				scores = append(scores, b.Score)
			}
			assert.Equal(t, tt.expectedScores, scores)
			assert.Equal(t, len(tt.expectedScores), r.BadgeCount(imageURL))
		})
	}
}

func TestRenderer_Errors(t *testing.T) {
	t.Parallel()

	t.Run("bounds error", func(t *testing.T) {
		t.Parallel()

		r := usecase.NewRenderer(newLookup(&mockHandle{err: context.DeadlineExceeded}), memoryoverlay.New(), usecase.PolicyReplace, nil)
		assert.ErrorIs(t, r.ShowResult(context.Background(), imageURL, 50, "x"), context.DeadlineExceeded)
	})

	t.Run("draw error", func(t *testing.T) {
		t.Parallel()

		r := usecase.NewRenderer(newLookup(&mockHandle{}), failingOverlay{}, usecase.PolicyReplace, nil)
		err := r.ShowResult(context.Background(), imageURL, 50, "x")
		assert.ErrorContains(t, err, "draw badge")
		assert.Zero(t, r.BadgeCount(imageURL))
	})
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := usecase.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, usecase.PolicyReplace, p)

	p, err = usecase.ParsePolicy("stack")
	require.NoError(t, err)
	assert.Equal(t, usecase.PolicyStack, p)

	_, err = usecase.ParsePolicy("merge")
	assert.ErrorIs(t, err, usecase.ErrUnknownPolicy)
}
