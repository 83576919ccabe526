package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/store"
	"github.com/starzmeet/listing-agent/pkg/google"
)

type mockDiscoverer struct {
	mock.Mock
}

func (m *mockDiscoverer) Discover(ctx context.Context, location string, max int) ([]google.Place, error) {
	args := m.Called(ctx, location, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]google.Place), args.Error(1)
}

func (m *mockDiscoverer) Details(ctx context.Context, placeID string) google.Place {
	args := m.Called(ctx, placeID)
	return args.Get(0).(google.Place)
}

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, websiteURL string) model.EnrichmentResult {
	args := m.Called(ctx, websiteURL)
	return args.Get(0).(model.EnrichmentResult)
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, address string) string {
	args := m.Called(ctx, address)
	return args.String(0)
}

type recordingNotifier struct {
	notify.Nop
	progress []notify.Progress
	retries  []string
	errors   []string
}

func (n *recordingNotifier) OnProgress(p notify.Progress) { n.progress = append(n.progress, p) }
func (n *recordingNotifier) OnRetryProgress(placeID string, _ model.ListingRecord) {
	n.retries = append(n.retries, placeID)
}
func (n *recordingNotifier) OnError(msg string) { n.errors = append(n.errors, msg) }

func newPipelineStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func searchHit(id, name, website string) google.Place {
	return google.Place{
		ID:               id,
		DisplayName:      google.DisplayName{Text: name},
		FormattedAddress: "12 Main St, Austin, TX 78701",
		WebsiteURI:       website,
	}
}

func TestRunProcessesEachPlace(t *testing.T) {
	disc := &mockDiscoverer{}
	enr := &mockEnricher{}
	cls := &mockClassifier{}
	st := newPipelineStore(t)
	notif := &recordingNotifier{}

	places := []google.Place{
		searchHit("p1", "Bright Steps Therapy", "https://brightsteps.example"),
		searchHit("p2", "Spectrum Learning Hub", "https://spectrum.example"),
	}
	disc.On("Discover", mock.Anything, "Austin, TX", 0).Return(places, nil)
	disc.On("Details", mock.Anything, "p1").Return(google.Place{
		ID:                  "p1",
		NationalPhoneNumber: "(512) 555-0101",
	})
	disc.On("Details", mock.Anything, "p2").Return(google.Place{})
	enr.On("Enrich", mock.Anything, "https://brightsteps.example").
		Return(model.EnrichmentResult{Email: "hello@brightsteps.example", Tagline: "Every step counts"})
	enr.On("Enrich", mock.Anything, "https://spectrum.example").
		Return(model.EnrichmentResult{})
	cls.On("Classify", mock.Anything, "12 Main St, Austin, TX 78701").
		Return("United States > TX > Austin")

	r := NewRunner(disc, enr, cls, st, "key", WithNotifier(notif), WithPause(0))
	result, err := r.Run(context.Background(), "Austin, TX", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewCount)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, "p1", first.PlaceID)
	assert.Equal(t, "Bright Steps Therapy", first.Title)
	assert.Equal(t, "(512) 555-0101", first.Phone)
	assert.Equal(t, "hello@brightsteps.example", first.Email)
	assert.Equal(t, "United States > TX > Austin", first.Location)
	assert.Equal(t, model.StatusNew, first.Status)

	// Both records were persisted.
	stored, err := st.GetRecord(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "Spectrum Learning Hub", stored.Record.Title)

	require.Len(t, notif.progress, 2)
	assert.Equal(t, 1, notif.progress[0].Completed)
	assert.Equal(t, 2, notif.progress[0].Total)
	require.NotNil(t, notif.progress[1].Record)
	assert.Equal(t, "p2", notif.progress[1].Record.PlaceID)
}

func TestRunAppendsHistoricalRecordsAsOld(t *testing.T) {
	disc := &mockDiscoverer{}
	enr := &mockEnricher{}
	cls := &mockClassifier{}
	st := newPipelineStore(t)
	ctx := context.Background()

	old := model.ListingRecord{PlaceID: "old1", Title: "Legacy Clinic", Status: model.StatusNew}
	require.NoError(t, st.Upsert(ctx, old, "Austin, TX"))

	disc.On("Discover", mock.Anything, "Austin, TX", 0).
		Return([]google.Place{searchHit("p1", "New Clinic", "")}, nil)
	disc.On("Details", mock.Anything, "p1").Return(google.Place{})
	enr.On("Enrich", mock.Anything, "").Return(model.EnrichmentResult{})
	cls.On("Classify", mock.Anything, mock.Anything).Return("")

	r := NewRunner(disc, enr, cls, st, "key", WithPause(0))
	result, err := r.Run(ctx, "Austin, TX", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewCount)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "p1", result.Records[0].PlaceID)
	assert.Equal(t, model.StatusNew, result.Records[0].Status)
	assert.Equal(t, "old1", result.Records[1].PlaceID)
	assert.Equal(t, model.StatusOld, result.Records[1].Status)
}

func TestRunNoNewPlaces(t *testing.T) {
	disc := &mockDiscoverer{}
	st := newPipelineStore(t)
	notif := &recordingNotifier{}

	disc.On("Discover", mock.Anything, "Nowhere", 0).Return([]google.Place{}, nil)

	r := NewRunner(disc, &mockEnricher{}, &mockClassifier{}, st, "key", WithNotifier(notif), WithPause(0))
	result, err := r.Run(context.Background(), "Nowhere", 0)
	require.NoError(t, err)

	assert.Zero(t, result.NewCount)
	assert.Zero(t, result.Total)
	require.Len(t, notif.progress, 1)
	assert.Contains(t, notif.progress[0].Message, "No new places found")
}

func TestRunDiscoverError(t *testing.T) {
	disc := &mockDiscoverer{}
	disc.On("Discover", mock.Anything, "Austin, TX", 0).
		Return(nil, errors.New("quota exceeded"))

	r := NewRunner(disc, &mockEnricher{}, &mockClassifier{}, newPipelineStore(t), "key", WithPause(0))
	_, err := r.Run(context.Background(), "Austin, TX", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRetryPlaceRefreshesRecord(t *testing.T) {
	disc := &mockDiscoverer{}
	enr := &mockEnricher{}
	cls := &mockClassifier{}
	st := newPipelineStore(t)
	notif := &recordingNotifier{}
	ctx := context.Background()

	stale := model.ListingRecord{PlaceID: "p1", Title: "Old Name", Website: "https://old.example"}
	require.NoError(t, st.Upsert(ctx, stale, "Austin, TX"))

	disc.On("Details", mock.Anything, "p1").Return(google.Place{
		ID:               "p1",
		DisplayName:      google.DisplayName{Text: "Fresh Name"},
		FormattedAddress: "12 Main St, Austin, TX 78701",
	})
	enr.On("Enrich", mock.Anything, "https://fixed.example").
		Return(model.EnrichmentResult{Tagline: "Back online"})
	cls.On("Classify", mock.Anything, "12 Main St, Austin, TX 78701").
		Return("United States > TX > Austin")

	r := NewRunner(disc, enr, cls, st, "key", WithNotifier(notif), WithPause(0))
	rec, err := r.RetryPlace(ctx, "p1", "https://fixed.example", "")
	require.NoError(t, err)

	assert.Equal(t, "Fresh Name", rec.Title)
	assert.Equal(t, "Back online", rec.Tagline)
	assert.Equal(t, "https://fixed.example", rec.Website)

	stored, err := st.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh Name", stored.Record.Title)
	assert.Equal(t, "Austin, TX", stored.Location)

	assert.Equal(t, []string{"p1"}, notif.retries)
}

func TestRetryPlaceUnknownID(t *testing.T) {
	r := NewRunner(&mockDiscoverer{}, &mockEnricher{}, &mockClassifier{}, newPipelineStore(t), "key")
	_, err := r.RetryPlace(context.Background(), "missing", "", "")
	require.Error(t, err)
}
