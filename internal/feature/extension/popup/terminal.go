package popup

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
)

var _ View = (*Terminal)(nil)

// Terminal はポップアップの内容をテキストとしてio.Writerに書き出すViewです。
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) ShowLoading(text string) {
	t.println(text)
}

func (t *Terminal) ShowEmpty(text string) {
	t.println(text)
}

func (t *Terminal) ShowMedia(rows []Row) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tw := tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tTYPE\tURL\tTHUMBNAIL\t")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t[%s]\n", r.Index, r.Type, r.URL, r.Thumbnail, r.Button.Label)
	}
	_ = tw.Flush()
}

func (t *Terminal) SetButton(index int, state ButtonState) {
	marker := ""
	if state.Disabled {
		marker = " (disabled)"
	}
	t.println(fmt.Sprintf("[%d] %s%s", index, state.Label, marker))
}

func (t *Terminal) ShowResult(panel ResultPanel) {
	t.println(fmt.Sprintf("%s [%s]\n%s", panel.Headline, panel.ScoreClass, panel.Explanation))
}

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.w, s)
}
