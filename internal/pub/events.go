package pub

import (
	"commitlens/internal/cache"
	"commitlens/internal/ports"
	"context"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	EventDirectoryRefresh = "directory.refresh"

	publishTimeout = 10 * time.Second
)

// RefreshEvent is the message published after each directory refresh attempt.
type RefreshEvent struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Cache      string `json:"cache,omitempty"`
	OK         bool   `json:"ok"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	At         string `json:"at"`
}

func NewRefreshEvent(cacheName string, out cache.RefreshOutcome) RefreshEvent {
	ev := RefreshEvent{
		Type:       EventDirectoryRefresh,
		RunID:      out.RunID,
		Cache:      cacheName,
		OK:         out.OK,
		Count:      out.Count,
		DurationMs: out.Duration.Milliseconds(),
		At:         out.Started.UTC().Format(time.RFC3339Nano),
	}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	return ev
}

// RefreshHook returns a cache refresh hook that publishes each outcome to arn.
// Publishing failures are logged and otherwise ignored; the refresh itself is never affected.
func RefreshHook(p ports.Publisher, arn, cacheName string) func(context.Context, cache.RefreshOutcome) {
	return func(ctx context.Context, out cache.RefreshOutcome) {
		b, err := json.Marshal(NewRefreshEvent(cacheName, out))
		if err != nil {
			log.WithError(err).Error("encode refresh event")
			return
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := p.PublishRaw(pctx, arn, b); err != nil {
			log.WithError(err).WithField("run_id", out.RunID).Warn("publish refresh event failed")
		}
	}
}
