// Package randomscore は固定テーブルからランダムにスコアを選ぶScoringProviderを提供します。
// 実際の分析は行いません。実モデルが用意されるまでのスタブです。
package randomscore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"deeptrust/internal/feature/analysis/usecase"
	"deeptrust/internal/shared/media"
)

// Entry はスコアテーブルの1行です。
type Entry struct {
	Score  int
	Reason string
}

// DefaultTable は既定のスコアテーブルです。
var DefaultTable = []Entry{
	{Score: 82, Reason: "unnatural face boundaries and lighting inconsistencies"},
	{Score: 67, Reason: "suspicious blur patterns around jaw and hairline"},
	{Score: 45, Reason: "minor artifacts detected but could be compression"},
	{Score: 23, Reason: "natural facial features with authentic textures"},
	{Score: 91, Reason: "clear AI generation markers in facial symmetry"},
	{Score: 38, Reason: "some irregularities but likely from photo editing"},
}

// Provider はテーブルからランダムに1行を選び分析結果を組み立てます。
type Provider struct {
	mu    sync.Mutex
	rng   *rand.Rand
	table []Entry
}

// ProviderがScoringProviderを実装していることをコンパイル時に検証します。
var _ usecase.ScoringProvider = (*Provider)(nil)

// NewProvider はProviderを生成します。tableが空の場合は DefaultTable を使用し、
// rngがnilの場合は時刻ベースの乱数を使用します。
func NewProvider(table []Entry, rng *rand.Rand) *Provider {
	if len(table) == 0 {
		table = DefaultTable
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Provider{rng: rng, table: table}
}

// Score はテーブルからランダムに選んだ結果を返します。
func (p *Provider) Score(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	e := p.table[p.rng.IntN(len(p.table))]
	p.mu.Unlock()

	return &media.AnalysisResult{
		DeepfakeScore:     e.Score,
		Explanation:       Explain(e),
		SuspiciousRegions: []media.Region{},
	}, nil
}

// Explain はスコアと理由から説明文を生成します。動画でも文面は同じです。
func Explain(e Entry) string {
	return fmt.Sprintf("The image shows %d%% deepfake probability. Analysis detected %s. %s",
		e.Score, e.Reason, verdict(e.Score))
}

func verdict(score int) string {
	switch media.SeverityOf(score) {
	case media.SeverityHigh:
		return "This content appears to be artificially generated or heavily manipulated."
	case media.SeverityMedium:
		return "Some suspicious elements detected - further inspection recommended."
	default:
		return "The content appears to be authentic with natural characteristics."
	}
}
