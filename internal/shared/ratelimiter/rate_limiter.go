// Package ratelimiter はAnalysis Serviceへの連続した問い合わせの頻度を制限します。
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter は呼び出し前に待機する能力です。
type Limiter interface {
	Wait(ctx context.Context) error
}

var _ Limiter = (*RateLimiter)(nil)

// RateLimiter は固定ウィンドウで操作の頻度を制限します。
// limit<=0 の場合は制限しません。
type RateLimiter struct {
	limit    int           // ウィンドウあたりの上限
	interval time.Duration // どの単位でリセットするか
	now      func() time.Time

	mu        sync.Mutex
	count     int
	lastReset time.Time
}

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		now:       time.Now,
		lastReset: time.Now(),
	}
}

// Wait は上限に達していればウィンドウの終わりまで待機します。
// 待機中にctxが終了した場合はctx.Err()を返し、呼び出しは数えません。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limit <= 0 {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}
	if rl.count < rl.limit {
		rl.count++
		rl.mu.Unlock()
		return nil
	}
	sleep := rl.interval - now.Sub(rl.lastReset)
	rl.mu.Unlock()

	slog.Info("rate limit reached", "limit", rl.limit, "sleep", sleep)
	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	// リセット
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.now().Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = rl.now()
	}
	rl.count++
	return nil
}
