// Package notify decouples the pipeline from the progress transport. The
// pipeline emits events through the Notifier interface; delivery is
// fire-and-forget and a lost event never affects pipeline correctness.
package notify

import (
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/model"
)

// Progress describes one completed unit of pipeline work.
type Progress struct {
	Completed int                  `json:"completed"`
	Total     int                  `json:"total"`
	Message   string               `json:"message,omitempty"`
	Record    *model.ListingRecord `json:"place,omitempty"`
}

// SyncProgress describes one completed unit of CMS sync work.
type SyncProgress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Title     string `json:"place"`
}

// Notifier receives pipeline events. Implementations must not block the
// pipeline and must not propagate delivery failures.
type Notifier interface {
	OnProgress(p Progress)
	OnRetryProgress(placeID string, record model.ListingRecord)
	OnSyncProgress(p SyncProgress)
	OnError(msg string)
	OnInfo(msg string)
}

// Nop is a Notifier that discards all events.
type Nop struct{}

func (Nop) OnProgress(Progress)                          {}
func (Nop) OnRetryProgress(string, model.ListingRecord)  {}
func (Nop) OnSyncProgress(SyncProgress)                  {}
func (Nop) OnError(string)                               {}
func (Nop) OnInfo(string)                                {}

// LogNotifier writes events to the global zap logger.
type LogNotifier struct{}

func (LogNotifier) OnProgress(p Progress) {
	fields := []zap.Field{
		zap.Int("completed", p.Completed),
		zap.Int("total", p.Total),
	}
	if p.Record != nil {
		fields = append(fields, zap.String("title", p.Record.Title))
	}
	if p.Message != "" {
		fields = append(fields, zap.String("message", p.Message))
	}
	zap.L().Info("progress", fields...)
}

func (LogNotifier) OnRetryProgress(placeID string, record model.ListingRecord) {
	zap.L().Info("retry_progress",
		zap.String("place_id", placeID),
		zap.String("title", record.Title),
	)
}

func (LogNotifier) OnSyncProgress(p SyncProgress) {
	zap.L().Info("sync_progress",
		zap.Int("completed", p.Completed),
		zap.Int("total", p.Total),
		zap.String("title", p.Title),
	)
}

func (LogNotifier) OnError(msg string) { zap.L().Warn("pipeline error", zap.String("message", msg)) }
func (LogNotifier) OnInfo(msg string)  { zap.L().Info("pipeline info", zap.String("message", msg)) }

// Multi fans events out to several notifiers.
type Multi []Notifier

func (m Multi) OnProgress(p Progress) {
	for _, n := range m {
		n.OnProgress(p)
	}
}

func (m Multi) OnRetryProgress(placeID string, record model.ListingRecord) {
	for _, n := range m {
		n.OnRetryProgress(placeID, record)
	}
}

func (m Multi) OnSyncProgress(p SyncProgress) {
	for _, n := range m {
		n.OnSyncProgress(p)
	}
}

func (m Multi) OnError(msg string) {
	for _, n := range m {
		n.OnError(msg)
	}
}

func (m Multi) OnInfo(msg string) {
	for _, n := range m {
		n.OnInfo(msg)
	}
}
