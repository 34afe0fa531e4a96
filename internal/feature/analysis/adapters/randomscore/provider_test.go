package randomscore

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeptrust/internal/shared/media"
)

func TestProvider_ScoreComesFromTable(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil, rand.New(rand.NewPCG(1, 2)))
	allowed := map[int]bool{}
	for _, e := range DefaultTable {
		allowed[e.Score] = true
	}

	for i := 0; i < 100; i++ {
		res, err := p.Score(context.Background(), media.AnalysisRequest{URL: "u", Type: media.Image})
		require.NoError(t, err)
		assert.True(t, allowed[res.DeepfakeScore], "unexpected score %d", res.DeepfakeScore)
		assert.NoError(t, res.Validate())
		assert.NotNil(t, res.SuspiciousRegions)
	}
}

func TestProvider_SingleEntryTable(t *testing.T) {
	t.Parallel()

	p := NewProvider([]Entry{{Score: 91, Reason: "clear AI generation markers in facial symmetry"}}, nil)
	res, err := p.Score(context.Background(), media.AnalysisRequest{URL: "u", Type: media.Image})
	require.NoError(t, err)

	assert.Equal(t, 91, res.DeepfakeScore)
	assert.Equal(t,
		"The image shows 91% deepfake probability. Analysis detected clear AI generation markers in facial symmetry. "+
			"This content appears to be artificially generated or heavily manipulated.",
		res.Explanation)
}

func TestProvider_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider(nil, nil).Score(ctx, media.AnalysisRequest{URL: "u"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_VideoUsesSameSentence(t *testing.T) {
	t.Parallel()

	p := NewProvider([]Entry{{Score: 23, Reason: "natural lighting and shadows"}}, nil)
	res, err := p.Score(context.Background(), media.AnalysisRequest{URL: "u", Type: media.Video})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Explanation, "The image shows 23% deepfake probability."), res.Explanation)
}

func TestExplain_Verdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entry    Entry
		contains string
	}{
		{Entry{Score: 67, Reason: "r"}, "further inspection recommended"},
		{Entry{Score: 40, Reason: "r"}, "appears to be authentic"},
		{Entry{Score: 41, Reason: "r"}, "The image shows 41%"},
	}

	for _, tt := range tests {
		got := Explain(tt.entry)
		assert.True(t, strings.Contains(got, tt.contains), "%q does not contain %q", got, tt.contains)
	}
}
