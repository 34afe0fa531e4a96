package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeptrust/internal/feature/detection/domain/entity"
	"deeptrust/internal/feature/detection/usecase"
	"deeptrust/internal/shared/media"
)

// mockDocumentProvider はDocumentProviderのモック実装です。
type mockDocumentProvider struct {
	mu       sync.Mutex
	elements []entity.Element
	err      error
	calls    int
}

func (m *mockDocumentProvider) Snapshot(ctx context.Context) ([]entity.Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.elements, m.err
}

func (m *mockDocumentProvider) set(elements []entity.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements = elements
}

func (m *mockDocumentProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockListStore はListStoreのモック実装です。
type mockListStore struct {
	mu    sync.Mutex
	saved [][]media.DetectionRecord
	err   error
}

func (m *mockListStore) Save(ctx context.Context, records []media.DetectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, records)
	return m.err
}

// chanSource はテスト用のMutationSourceです。
type chanSource struct {
	ch  chan struct{}
	err error
}

func (s *chanSource) Mutations(ctx context.Context) (<-chan struct{}, error) {
	return s.ch, s.err
}

func img(src string, w, h int) entity.Element {
	return entity.Element{Tag: "img", Src: src, NaturalWidth: w, NaturalHeight: h}
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		elements []entity.Element
		expected []media.DetectionRecord
	}{
		{
			name:     "large image is detected",
			elements: []entity.Element{img("https://a/x.jpg", 400, 300)},
			expected: []media.DetectionRecord{{MediaType: media.Image, SourceURL: "https://a/x.jpg"}},
		},
		{
			name:     "image at exactly 100px is excluded",
			elements: []entity.Element{img("https://a/x.jpg", 100, 300), img("https://a/y.jpg", 300, 100)},
			expected: []media.DetectionRecord{},
		},
		{
			name:     "icon sized image is excluded",
			elements: []entity.Element{img("https://a/icon.png", 16, 16)},
			expected: []media.DetectionRecord{},
		},
		{
			name:     "image without src is excluded",
			elements: []entity.Element{img("", 400, 400)},
			expected: []media.DetectionRecord{},
		},
		{
			name: "video uses src then currentSrc",
			elements: []entity.Element{
				{Tag: "video", Src: "https://a/v.mp4"},
				{Tag: "VIDEO", CurrentSrc: "https://a/w.webm"},
				{Tag: "video"},
			},
			expected: []media.DetectionRecord{
				{MediaType: media.Video, SourceURL: "https://a/v.mp4"},
				{MediaType: media.Video, SourceURL: "https://a/w.webm"},
			},
		},
		{
			name: "document order is preserved",
			elements: []entity.Element{
				{Tag: "video", Src: "https://a/v.mp4"},
				img("https://a/x.jpg", 200, 200),
				{Tag: "iframe", Src: "https://a/frame"},
			},
			expected: []media.DetectionRecord{
				{MediaType: media.Video, SourceURL: "https://a/v.mp4"},
				{MediaType: media.Image, SourceURL: "https://a/x.jpg"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockListStore{}
			d := usecase.NewDetector(&mockDocumentProvider{elements: tt.elements}, store)

			got, err := d.Detect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected, d.Current())

			require.Len(t, store.saved, 1)
			assert.Equal(t, tt.expected, store.saved[0])
		})
	}
}

func TestDetector_DetectReplacesList(t *testing.T) {
	t.Parallel()

	provider := &mockDocumentProvider{elements: []entity.Element{img("https://a/1.jpg", 200, 200), img("https://a/2.jpg", 200, 200)}}
	d := usecase.NewDetector(provider, nil)

	_, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Current(), 2)

	provider.set([]entity.Element{img("https://a/3.jpg", 200, 200)})
	_, err = d.Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []media.DetectionRecord{{MediaType: media.Image, SourceURL: "https://a/3.jpg"}}, d.Current())

	_, ok := d.Find("https://a/1.jpg")
	assert.False(t, ok)
	rec, ok := d.Find("https://a/3.jpg")
	assert.True(t, ok)
	assert.Equal(t, media.Image, rec.MediaType)
}

func TestDetector_DetectIsIdempotent(t *testing.T) {
	t.Parallel()

	provider := &mockDocumentProvider{elements: []entity.Element{
		img("https://a/1.jpg", 640, 480),
		img("https://a/icon.png", 32, 32),
		{Tag: "video", CurrentSrc: "https://a/v.mp4"},
	}}
	d := usecase.NewDetector(provider, nil)

	first, err := d.Detect(context.Background())
	require.NoError(t, err)
	second, err := d.Detect(context.Background())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].SourceURL, second[i].SourceURL)
		assert.Equal(t, first[i].MediaType, second[i].MediaType)
	}
	assert.Len(t, first, 2)
}

func TestDetector_CurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	d := usecase.NewDetector(&mockDocumentProvider{elements: []entity.Element{img("https://a/1.jpg", 200, 200)}}, nil)
	_, err := d.Detect(context.Background())
	require.NoError(t, err)

	list := d.Current()
	list[0].SourceURL = "mutated"

	assert.Equal(t, "https://a/1.jpg", d.Current()[0].SourceURL)
}

func TestDetector_DetectErrors(t *testing.T) {
	t.Parallel()

	t.Run("snapshot error keeps previous list", func(t *testing.T) {
		t.Parallel()

		provider := &mockDocumentProvider{elements: []entity.Element{img("https://a/1.jpg", 200, 200)}}
		d := usecase.NewDetector(provider, nil)
		_, err := d.Detect(context.Background())
		require.NoError(t, err)

		provider.err = errors.New("page gone")
		_, err = d.Detect(context.Background())
		assert.Error(t, err)
		assert.Len(t, d.Current(), 1)
	})

	t.Run("store error does not fail detection", func(t *testing.T) {
		t.Parallel()

		store := &mockListStore{err: errors.New("quota exceeded")}
		d := usecase.NewDetector(&mockDocumentProvider{elements: []entity.Element{img("https://a/1.jpg", 200, 200)}}, store)

		got, err := d.Detect(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestDetector_Watch(t *testing.T) {
	t.Parallel()

	provider := &mockDocumentProvider{elements: []entity.Element{img("https://a/1.jpg", 200, 200)}}
	d := usecase.NewDetector(provider, nil)
	src := &chanSource{ch: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Watch(ctx, src) }()

	// 起動時の初回スキャン
	require.Eventually(t, func() bool { return len(d.Current()) == 1 }, time.Second, 5*time.Millisecond)

	provider.set([]entity.Element{img("https://a/1.jpg", 200, 200), {Tag: "video", Src: "https://a/v.mp4"}})
	src.ch <- struct{}{}

	require.Eventually(t, func() bool { return len(d.Current()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestDetector_WatchDebounceCollapsesBurst(t *testing.T) {
	t.Parallel()

	provider := &mockDocumentProvider{}
	d := usecase.NewDetector(provider, nil, usecase.WithDebounce(50*time.Millisecond))
	src := &chanSource{ch: make(chan struct{}, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Watch(ctx, src) }()

	require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, 5*time.Millisecond)

	provider.set([]entity.Element{img("https://a/late.jpg", 200, 200)})
	for i := 0; i < 5; i++ {
		src.ch <- struct{}{}
	}

	require.Eventually(t, func() bool { return len(d.Current()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, provider.callCount())
}

func TestDetector_WatchClosedSource(t *testing.T) {
	t.Parallel()

	src := &chanSource{ch: make(chan struct{})}
	close(src.ch)

	d := usecase.NewDetector(&mockDocumentProvider{}, nil)
	assert.NoError(t, d.Watch(context.Background(), src))
}

func TestDetector_WatchSourceError(t *testing.T) {
	t.Parallel()

	expected := errors.New("observer unavailable")
	provider := &mockDocumentProvider{elements: []entity.Element{img("https://a/1.jpg", 200, 200)}}
	d := usecase.NewDetector(provider, nil)
	assert.ErrorIs(t, d.Watch(context.Background(), &chanSource{err: expected}), expected)

	// 監視できなくても読み込み時の一覧は作られる
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, []media.DetectionRecord{{MediaType: media.Image, SourceURL: "https://a/1.jpg"}}, d.Current())
}
