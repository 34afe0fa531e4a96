// Package browser はChromeの起動・接続とページのオープンを扱います。
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// DefaultNavigateTimeout はページ遷移と読み込み待ちのタイムアウトです。
const DefaultNavigateTimeout = 30 * time.Second

// ErrClosed はクローズ済みのSessionを使用した場合のエラーです。
var ErrClosed = errors.New("browser: session is closed")

// Config はブラウザセッションの設定です。
type Config struct {
	// RemoteURL は既存ChromeのWebSocket URLです。空ならローカルで起動します。
	RemoteURL string
	// Headless=false はウィンドウを表示して起動します（ローカル起動時のみ）。
	Headless bool
	// NavigateTimeout は0ならDefaultNavigateTimeoutです。
	NavigateTimeout time.Duration
	Logger          *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = DefaultNavigateTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session は1つのChromeへの接続です。
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Start はChromeを起動（またはリモートに接続）します。
func Start(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger

	s := &Session{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", cfg.Headless)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b
	return s, nil
}

// OpenPage はstealthを適用した新しいタブでpageURLを開きます。
func (s *Session) OpenPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	if s.browser == nil {
		return nil, ErrClosed
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return page, nil
}

// Close はブラウザを閉じ、ローカル起動したプロセスを片付けます。
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		// リモート接続の場合は他の利用者がいるためブラウザ自体は閉じない
		if s.lnch != nil {
			err = s.browser.Close()
		}
		s.browser = nil
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}
