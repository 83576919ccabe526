package cms

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/store"
	"github.com/starzmeet/listing-agent/pkg/listingpro"
)

// Mode selects how existing remote listings are handled.
type Mode string

const (
	// ModeSkip leaves existing listings untouched.
	ModeSkip Mode = "skip"
	// ModeUpdate overwrites existing listings and creates missing ones.
	ModeUpdate Mode = "update"
	// ModeForce always creates, which can duplicate listings.
	ModeForce Mode = "force"
)

// ParseMode validates a mode string, defaulting to skip.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSkip, ModeUpdate, ModeForce:
		return Mode(s), nil
	case "":
		return ModeSkip, nil
	default:
		return "", eris.Errorf("cms: unknown sync mode %q", s)
	}
}

// Outcome describes what happened to one record.
type Outcome struct {
	Action Action `json:"action"`
	PostID int64  `json:"wp_post_id,omitempty"`
}

// Action is the remote effect of a single sync.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// SyncError records a per-listing failure inside a batch.
type SyncError struct {
	Place string `json:"place"`
	Error string `json:"error"`
}

// Tally summarizes a batch sync.
type Tally struct {
	Total   int         `json:"total"`
	Synced  int         `json:"synced"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []SyncError `json:"errors"`
	Method  string      `json:"method"`
}

// Syncer pushes stored records to a ListingPro site and tracks sync state.
type Syncer struct {
	client   listingpro.Client
	store    store.Store
	limiter  *rate.Limiter
	notifier notify.Notifier
}

// Option configures the Syncer.
type Option func(*Syncer)

// WithCallsPerSecond sets the pace of individual sync calls.
func WithCallsPerSecond(cps float64) Option {
	return func(s *Syncer) { s.limiter = rate.NewLimiter(rate.Limit(cps), 1) }
}

// WithNotifier sets the progress notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Syncer) { s.notifier = n }
}

// NewSyncer creates a Syncer.
func NewSyncer(client listingpro.Client, st store.Store, opts ...Option) *Syncer {
	s := &Syncer{
		client:   client,
		store:    st,
		limiter:  rate.NewLimiter(rate.Limit(2), 1),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncOne pushes a single record. In skip and update modes it first looks for
// an existing remote listing by title, then phone, then address.
func (s *Syncer) SyncOne(ctx context.Context, rec model.ListingRecord, mode Mode) (Outcome, error) {
	payload := Convert(rec)

	var existingID int64
	if mode != ModeForce {
		existingID = s.findExisting(ctx, rec)
	}

	if existingID != 0 {
		switch mode {
		case ModeSkip:
			zap.L().Info("cms: skipping existing listing",
				zap.String("title", rec.Title), zap.Int64("post_id", existingID))
			return Outcome{Action: ActionSkipped, PostID: existingID}, nil
		case ModeUpdate:
			if err := s.client.UpdateListing(ctx, existingID, payload); err != nil {
				return Outcome{}, err
			}
			zap.L().Info("cms: updated listing",
				zap.String("title", rec.Title), zap.Int64("post_id", existingID))
			return Outcome{Action: ActionUpdated, PostID: existingID}, nil
		}
	}

	postID, err := s.client.CreateListing(ctx, payload)
	if err != nil {
		return Outcome{}, err
	}
	zap.L().Info("cms: created listing",
		zap.String("title", rec.Title), zap.Int64("post_id", postID))
	return Outcome{Action: ActionCreated, PostID: postID}, nil
}

// findExisting returns the remote post ID of a listing matching rec, or 0.
// Lookup failures are treated as "not found" so that sync can proceed.
func (s *Syncer) findExisting(ctx context.Context, rec model.ListingRecord) int64 {
	listings, err := s.client.ListListings(ctx)
	if err != nil {
		zap.L().Error("cms: existence check failed", zap.Error(err))
		return 0
	}

	title := strings.ToLower(strings.TrimSpace(rec.Title))
	phone := strings.TrimSpace(rec.Phone)
	address := strings.ToLower(strings.TrimSpace(rec.Address))

	for _, l := range listings {
		lt := strings.ToLower(strings.TrimSpace(l.Title))
		if lt != "" && title != "" && lt == title {
			return l.EffectiveID()
		}
		lp := strings.TrimSpace(l.Phone)
		if lp != "" && phone != "" && lp == phone {
			return l.EffectiveID()
		}
		la := strings.ToLower(strings.TrimSpace(l.EffectiveAddress()))
		if la != "" && address != "" && la == address {
			return l.EffectiveID()
		}
	}
	return 0
}

// SyncBatch pushes records to the CMS. With useBulk set (and mode not
// update), it first tries the bulk create endpoint and falls back to
// individual syncs when that fails. Sync state is persisted after every
// confirmed remote outcome, including skips.
func (s *Syncer) SyncBatch(ctx context.Context, records []model.StoredRecord, mode Mode, useBulk bool) (*Tally, error) {
	tally := &Tally{Total: len(records), Errors: []SyncError{}, Method: "individual"}
	if len(records) == 0 {
		return tally, nil
	}

	if useBulk && mode != ModeUpdate {
		err := s.bulkCreate(ctx, records)
		if err == nil {
			tally.Synced = len(records)
			tally.Method = "bulk_endpoint"
			return tally, nil
		}
		zap.L().Warn("cms: bulk endpoint failed, falling back to individual sync", zap.Error(err))
	}

	for _, sr := range records {
		if err := s.limiter.Wait(ctx); err != nil {
			return tally, eris.Wrap(err, "cms: throttle")
		}

		outcome, err := s.SyncOne(ctx, sr.Record, mode)
		switch {
		case err != nil:
			tally.Failed++
			tally.Errors = append(tally.Errors, SyncError{Place: sr.Record.Title, Error: err.Error()})
			zap.L().Error("cms: sync failed", zap.String("title", sr.Record.Title), zap.Error(err))
		case outcome.Action == ActionSkipped:
			tally.Skipped++
			s.markSynced(ctx, sr.Record.PlaceID, outcome.PostID)
		default:
			tally.Synced++
			s.markSynced(ctx, sr.Record.PlaceID, outcome.PostID)
		}

		s.notifier.OnSyncProgress(notify.SyncProgress{
			Completed: tally.Synced + tally.Skipped + tally.Failed,
			Total:     tally.Total,
			Title:     sr.Record.Title,
		})
	}
	return tally, nil
}

func (s *Syncer) bulkCreate(ctx context.Context, records []model.StoredRecord) error {
	payloads := make([]listingpro.Payload, len(records))
	for i, sr := range records {
		payloads[i] = Convert(sr.Record)
	}
	if err := s.client.BulkCreate(ctx, payloads); err != nil {
		return err
	}
	// The bulk endpoint does not return per-record post IDs.
	now := time.Now().UTC()
	for _, sr := range records {
		if err := s.store.UpdateSyncState(ctx, sr.Record.PlaceID, model.SyncState{
			Synced: true, LastSyncAt: &now,
		}); err != nil {
			zap.L().Warn("cms: record sync state", zap.String("place_id", sr.Record.PlaceID), zap.Error(err))
		}
	}
	zap.L().Info("cms: bulk sync completed", zap.Int("listings", len(records)))
	return nil
}

func (s *Syncer) markSynced(ctx context.Context, placeID string, postID int64) {
	now := time.Now().UTC()
	state := model.SyncState{Synced: true, LastSyncAt: &now}
	if postID != 0 {
		state.CMSPostID = &postID
	}
	if err := s.store.UpdateSyncState(ctx, placeID, state); err != nil {
		zap.L().Warn("cms: record sync state", zap.String("place_id", placeID), zap.Error(err))
	}
}
