package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"deeptrust/internal/feature/detection/adapters/memorystore"
	"deeptrust/internal/feature/detection/adapters/redisstore"
	detection "deeptrust/internal/feature/detection/usecase"
	"deeptrust/internal/feature/extension/background"
	"deeptrust/internal/feature/extension/contentscript"
	"deeptrust/internal/feature/extension/popup"
	indicator "deeptrust/internal/feature/indicator/usecase"
	orchestrator "deeptrust/internal/feature/orchestrator/usecase"
	"deeptrust/internal/platform/config"
	"deeptrust/internal/platform/externalapi/analysisapi"
	infrahttp "deeptrust/internal/platform/http"
	"deeptrust/internal/platform/messaging"
)

// NewAnalysisClient creates a fully configured Analysis Service client with HTTP client.
func NewAnalysisClient(cfg config.AgentConfig) *analysisapi.Client {
	httpClient := infrahttp.NewHTTPClient(cfg.AnalysisTimeout)
	return analysisapi.NewClient(analysisapi.Config{BaseURL: cfg.BackendURL, Timeout: cfg.AnalysisTimeout}, httpClient)
}

// NewListStore returns a Redis-backed detection list store when Redis is available,
// otherwise an in-memory one.
func NewListStore(rdb *redis.Client, tab string, ttl time.Duration) detection.ListStore {
	if rdb != nil {
		return redisstore.New(rdb, tab, ttl)
	}
	return memorystore.New()
}

// Extension is the set of extension contexts running inside the agent:
// the message bus and the background worker.
type Extension struct {
	Bus    *messaging.Bus
	Worker *background.Worker

	cfg    config.AgentConfig
	logger *slog.Logger
}

// NewExtension starts the bus and the background worker.
func NewExtension(cfg config.AgentConfig, service orchestrator.AnalysisService, logger *slog.Logger) (*Extension, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bus := messaging.New(messaging.WithLogger(logger))
	worker := background.New(bus, nil, logger)
	worker.SetAnalyzer(orchestrator.NewOrchestrator(service, worker, logger))
	if err := worker.Start(); err != nil {
		bus.Close()
		return nil, fmt.Errorf("start background worker: %w", err)
	}

	return &Extension{Bus: bus, Worker: worker, cfg: cfg, logger: logger}, nil
}

// Tab is the page context of one tab: its detector, renderer and content script.
type Tab struct {
	ID       string
	Detector *detection.Detector
	Renderer *indicator.Renderer
	Content  *contentscript.ContentScript

	detach func()
}

// OpenTab wires a page context for the given document and overlay and registers it on the bus.
func (e *Extension) OpenTab(id string, doc detection.DocumentProvider, overlay indicator.Overlay, store detection.ListStore) (*Tab, error) {
	policy, err := indicator.ParsePolicy(e.cfg.BadgePolicy)
	if err != nil {
		return nil, err
	}

	det := detection.NewDetector(doc, store,
		detection.WithDebounce(e.cfg.DetectionDebounce),
		detection.WithLogger(e.logger.With("tab", id)),
	)
	rend := indicator.NewRenderer(det, overlay, policy, e.logger.With("tab", id))
	cs := contentscript.New(id, det, rend, e.logger)

	detach, err := cs.Attach(e.Bus)
	if err != nil {
		return nil, fmt.Errorf("attach content script: %w", err)
	}
	return &Tab{ID: id, Detector: det, Renderer: rend, Content: cs, detach: detach}, nil
}

// Close unregisters the page context.
func (t *Tab) Close() {
	if t.detach != nil {
		t.detach()
		t.detach = nil
	}
}

// NewPopup opens a popup for the tab rendering into view.
func (e *Extension) NewPopup(tab string, view popup.View) *popup.Popup {
	return popup.New(tab, e.Bus, view, e.cfg.ErrorCooldown, e.logger)
}

// Close stops the background worker and the bus.
func (e *Extension) Close() {
	e.Worker.Stop()
	e.Bus.Close()
}
