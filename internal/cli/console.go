package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"deeptrust/internal/feature/extension/background"
	"deeptrust/internal/feature/extension/popup"
	"deeptrust/internal/shared/media"
)

const consoleHelp = `commands:
  list                 show detected media
  rescan               detect media again
  analyze <n>          analyze item n from the list
  menu <url> [type]    right-click "Analyze with DeepTRUST" on a media URL (type: image|video)
  help                 show this help
  quit                 close the popup and exit`

// console は対話的にポップアップとコンテキストメニューを操作します。
type console struct {
	tab    string
	popup  *popup.Popup
	worker *background.Worker
	out    io.Writer
}

// run は入力が尽きるか、quitが入力されるか、ctxが終了するまでコマンドを処理します。
func (c *console) run(ctx context.Context, in io.Reader) error {
	readCtx, stop := context.WithCancel(ctx)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.exec(ctx, strings.Fields(line))
			if err != nil {
				c.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *console) exec(ctx context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		c.printf("%s\n", consoleHelp)
	case "list":
		items := c.popup.Items()
		if len(items) == 0 {
			c.printf("%s\n", popup.EmptyText)
		}
		for i, item := range items {
			c.printf("%d\t%s\t%s\n", i, item.MediaType, item.SourceURL)
		}
	case "rescan":
		if _, err := c.popup.Rescan(ctx); err != nil {
			return false, err
		}
	case "analyze":
		if len(args) != 2 {
			return false, errors.New("usage: analyze <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return false, fmt.Errorf("invalid index %q", args[1])
		}
		if _, err := c.popup.TriggerAnalyze(ctx, n); err != nil {
			return false, err
		}
	case "menu":
		if len(args) < 2 {
			return false, errors.New("usage: menu <url> [image|video]")
		}
		mediaType := media.Image
		if len(args) > 2 {
			t, err := media.ParseMediaType(args[2])
			if err != nil {
				return false, err
			}
			mediaType = t
		}
		res, err := c.worker.OnContextMenu(ctx, background.ContextMenuID, c.tab, args[1], mediaType)
		if err != nil {
			return false, err
		}
		c.printf("%d%% Deepfake Probability\n", res.DeepfakeScore)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", args[0])
	}
	return false, nil
}

func (c *console) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(c.out, format, a...)
}
