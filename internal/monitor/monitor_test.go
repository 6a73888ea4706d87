package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pixmonitor/internal/state"
	"pixmonitor/internal/types"
)

type fakeFetcher struct {
	items  []types.Regulation
	err    error
	called bool
}

func (f *fakeFetcher) FetchLatest(_ context.Context, _ []string) ([]types.Regulation, error) {
	f.called = true
	return f.items, f.err
}

type fakeExtractor struct{}

func (fakeExtractor) FetchFullText(_ context.Context, _ string) string { return "texto completo" }

type fakeSummarizer struct {
	failFor map[string]bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, item types.Regulation, _ string) (string, error) {
	if f.failFor[item.ID] {
		return "", fmt.Errorf("generation failed for %s", item.ID)
	}
	return "resumo de " + item.ID, nil
}

type fakeNotifier struct {
	notified []string
	failFor  map[string]bool
}

func (f *fakeNotifier) Notify(_ context.Context, item types.Regulation, _ string) error {
	if f.failFor[item.ID] {
		return fmt.Errorf("delivery failed for %s", item.ID)
	}
	f.notified = append(f.notified, item.ID)
	return nil
}

func item(number string) types.Regulation {
	return types.Regulation{
		ID:     types.DeriveID("Resolução BCB", number),
		Type:   "Resolução BCB",
		Number: number,
		Title:  "Resolução BCB nº " + number,
		URL:    "https://example.org/exibenormativo?numero=" + number,
	}
}

func newTestMonitor(t *testing.T, fetcher Fetcher, summarizer Summarizer, notifier Notifier) (*Monitor, string) {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "state.json")
	store := state.NewStore(statePath, zap.NewNop())

	m := New(fetcher, fakeExtractor{}, summarizer, notifier, store, zap.NewNop())
	m.Delay = 0
	m.now = func() time.Time { return time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC) }
	return m, statePath
}

func TestRunNotifiesOldestFirst(t *testing.T) {
	t.Parallel()

	// Fetcher returns newest first, as the portal does.
	fetcher := &fakeFetcher{items: []types.Regulation{item("407"), item("403")}}
	notifier := &fakeNotifier{}
	m, _ := newTestMonitor(t, fetcher, &fakeSummarizer{}, notifier)

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"Resolução BCB-403", "Resolução BCB-407"}, notifier.notified)
}

func TestRunSkipsAlreadySeenItems(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{items: []types.Regulation{item("407"), item("403")}}
	notifier := &fakeNotifier{}
	m, statePath := newTestMonitor(t, fetcher, &fakeSummarizer{}, notifier)

	require.NoError(t, m.Run(context.Background()))
	require.Equal(t, []string{"Resolução BCB-403", "Resolução BCB-407"}, notifier.notified)

	// Second run with the same feed: nothing new, history unchanged.
	secondNotifier := &fakeNotifier{}
	store := state.NewStore(statePath, zap.NewNop())
	second := New(fetcher, fakeExtractor{}, &fakeSummarizer{}, secondNotifier, store, zap.NewNop())
	second.Delay = 0

	require.NoError(t, second.Run(context.Background()))
	assert.Empty(t, secondNotifier.notified)
	assert.Equal(t, []string{"Resolução BCB-403", "Resolução BCB-407"}, store.SeenIDs())
}

func TestRunIsolatesPerItemFailures(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{items: []types.Regulation{item("405"), item("404"), item("403")}}
	summarizer := &fakeSummarizer{failFor: map[string]bool{"Resolução BCB-404": true}}
	notifier := &fakeNotifier{}
	m, statePath := newTestMonitor(t, fetcher, summarizer, notifier)

	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, []string{"Resolução BCB-403", "Resolução BCB-405"}, notifier.notified)

	store := state.NewStore(statePath, zap.NewNop())
	store.Load()
	assert.True(t, store.Seen("Resolução BCB-403"))
	assert.True(t, store.Seen("Resolução BCB-405"))
	// The failed item stays out of the history so the next run retries it.
	assert.False(t, store.Seen("Resolução BCB-404"))
}

func TestRunIsolatesNotificationFailures(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{items: []types.Regulation{item("404"), item("403")}}
	notifier := &fakeNotifier{failFor: map[string]bool{"Resolução BCB-403": true}}
	m, statePath := newTestMonitor(t, fetcher, &fakeSummarizer{}, notifier)

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"Resolução BCB-404"}, notifier.notified)

	store := state.NewStore(statePath, zap.NewNop())
	store.Load()
	assert.False(t, store.Seen("Resolução BCB-403"))
	assert.True(t, store.Seen("Resolução BCB-404"))
}

func TestRunAbortsOnFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: fmt.Errorf("listing unavailable")}
	notifier := &fakeNotifier{}
	m, statePath := newTestMonitor(t, fetcher, &fakeSummarizer{}, notifier)

	require.Error(t, m.Run(context.Background()))
	assert.Empty(t, notifier.notified)

	// Aborted runs must not stamp a check time.
	_, err := os.Stat(statePath)
	assert.True(t, os.IsNotExist(err))
}

func TestDryRunUsesFallbackItemsAndLeavesStateAlone(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{items: []types.Regulation{item("407")}}
	notifier := &fakeNotifier{}
	m, statePath := newTestMonitor(t, fetcher, &fakeSummarizer{}, notifier)
	m.DryRun = true

	require.NoError(t, m.Run(context.Background()))

	assert.False(t, fetcher.called, "dry run must not fetch live data")
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, dryRunItems[0].ID, notifier.notified[0])

	_, err := os.Stat(statePath)
	assert.True(t, os.IsNotExist(err), "dry run must not write the state file")
}

func TestRunPersistsCheckTimestamp(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{items: []types.Regulation{item("403")}}
	m, statePath := newTestMonitor(t, fetcher, &fakeSummarizer{}, &fakeNotifier{})

	require.NoError(t, m.Run(context.Background()))

	raw, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastCheck": "2025-06-02T12:00:00Z"`)
}
