package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/resilience"
	"github.com/starzmeet/listing-agent/internal/store"
	"github.com/starzmeet/listing-agent/pkg/google"
)

type mockPlaces struct {
	mock.Mock
}

func (m *mockPlaces) SearchText(ctx context.Context, query string, pageSize int) ([]google.Place, error) {
	args := m.Called(ctx, query, pageSize)
	if v := args.Get(0); v != nil {
		return v.([]google.Place), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlaces) Details(ctx context.Context, placeID string) (google.Place, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(google.Place), args.Error(1)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1.0,
	}
}

func newKeywordStore(t *testing.T, kws ...string) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	for _, k := range kws {
		_, err := s.AddKeyword(context.Background(), k, "test")
		require.NoError(t, err)
	}
	return s
}

func place(id string) google.Place {
	return google.Place{ID: id, DisplayName: google.DisplayName{Text: "Place " + id}}
}

func TestDiscoverDedupAcrossQueries(t *testing.T) {
	st := newKeywordStore(t, "autism therapy centers", "ABA therapy centers")

	places := &mockPlaces{}
	places.On("SearchText", mock.Anything, "ABA therapy centers in Frisco, TX", 20).
		Return([]google.Place{place("a"), place("b")}, nil).Once()
	places.On("SearchText", mock.Anything, "autism therapy centers in Frisco, TX", 20).
		Return([]google.Place{place("b"), place("c")}, nil).Once()

	e := NewEngine(places, st,
		WithQueriesPerSecond(1000),
		WithRetryConfig(fastRetry()),
	)

	got, err := e.Discover(context.Background(), "Frisco, TX", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	places.AssertExpectations(t)
}

func TestDiscoverSkipsStoredPlaces(t *testing.T) {
	st := newKeywordStore(t, "autism therapy centers")
	require.NoError(t, st.Upsert(context.Background(),
		model.ListingRecord{PlaceID: "known"}, "Frisco, TX"))

	places := &mockPlaces{}
	places.On("SearchText", mock.Anything, mock.Anything, 20).
		Return([]google.Place{place("known"), place("fresh")}, nil).Once()

	e := NewEngine(places, st, WithQueriesPerSecond(1000), WithRetryConfig(fastRetry()))

	got, err := e.Discover(context.Background(), "Frisco, TX", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestDiscoverContinuesAfterQueryFailure(t *testing.T) {
	st := newKeywordStore(t, "bad keyword", "good keyword")

	places := &mockPlaces{}
	places.On("SearchText", mock.Anything, "bad keyword in Austin, TX", 20).
		Return(nil, errors.New("quota exceeded")).Times(2)
	places.On("SearchText", mock.Anything, "good keyword in Austin, TX", 20).
		Return([]google.Place{place("x")}, nil).Once()

	e := NewEngine(places, st, WithQueriesPerSecond(1000), WithRetryConfig(fastRetry()))

	got, err := e.Discover(context.Background(), "Austin, TX", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
}

func TestDiscoverCapsResults(t *testing.T) {
	st := newKeywordStore(t, "autism therapy centers")

	places := &mockPlaces{}
	places.On("SearchText", mock.Anything, mock.Anything, 20).
		Return([]google.Place{place("1"), place("2"), place("3")}, nil).Once()

	e := NewEngine(places, st, WithQueriesPerSecond(1000), WithRetryConfig(fastRetry()))

	got, err := e.Discover(context.Background(), "Frisco, TX", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDiscoverNoActiveKeywords(t *testing.T) {
	st := newKeywordStore(t)

	e := NewEngine(&mockPlaces{}, st, WithQueriesPerSecond(1000))
	_, err := e.Discover(context.Background(), "Frisco, TX", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active search keywords")
}

func TestDiscoverTouchesUsedKeywords(t *testing.T) {
	st := newKeywordStore(t, "autism therapy centers")

	places := &mockPlaces{}
	places.On("SearchText", mock.Anything, mock.Anything, 20).
		Return([]google.Place{}, nil).Once()

	e := NewEngine(places, st, WithQueriesPerSecond(1000), WithRetryConfig(fastRetry()))
	_, err := e.Discover(context.Background(), "Frisco, TX", 0)
	require.NoError(t, err)

	kws, err := st.ListKeywords(context.Background())
	require.NoError(t, err)
	require.Len(t, kws, 1)
	assert.NotNil(t, kws[0].LastUsed)
}

func TestDetailsFallsBackToZero(t *testing.T) {
	st := newKeywordStore(t)

	places := &mockPlaces{}
	places.On("Details", mock.Anything, "p1").
		Return(google.Place{}, errors.New("server error")).Times(2)

	e := NewEngine(places, st, WithRetryConfig(fastRetry()))
	got := e.Details(context.Background(), "p1")
	assert.Empty(t, got.ID)
}

func TestDetailsSuccess(t *testing.T) {
	st := newKeywordStore(t)

	detail := place("p1")
	detail.WebsiteURI = "https://example.com"

	places := &mockPlaces{}
	places.On("Details", mock.Anything, "p1").Return(detail, nil).Once()

	e := NewEngine(places, st, WithRetryConfig(fastRetry()))
	got := e.Details(context.Background(), "p1")
	assert.Equal(t, "https://example.com", got.WebsiteURI)
}
