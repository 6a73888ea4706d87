/*
Package monitor runs one end-to-end monitoring cycle: load state, fetch
candidates, dedup against the seen-id history, process new items oldest
first, persist state.
*/
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pixmonitor/internal/state"
	"pixmonitor/internal/types"
)

// itemDelay spaces out item pipelines so the collaborator services are not
// hammered back to back.
const itemDelay = 3 * time.Second

// Fetcher discovers candidate regulations, newest first. seenIDs seeds the
// fallback strategy's numbering baseline.
type Fetcher interface {
	FetchLatest(ctx context.Context, seenIDs []string) ([]types.Regulation, error)
}

// Extractor retrieves the full text of one item, best-effort.
type Extractor interface {
	FetchFullText(ctx context.Context, url string) string
}

// Summarizer produces the executive summary for one item.
type Summarizer interface {
	Summarize(ctx context.Context, item types.Regulation, fullText string) (string, error)
}

// Notifier delivers the alert for one item.
type Notifier interface {
	Notify(ctx context.Context, item types.Regulation, summary string) error
}

// dryRunItems replaces the live fetch in dry-run mode: a fixed, known
// regulation so connectivity can be verified without touching the real
// backlog or the dedup history.
var dryRunItems = []types.Regulation{
	{
		ID:          types.DeriveID("Resolução BCB", "403"),
		Type:        "Resolução BCB",
		Number:      "403",
		Title:       "Altera o Regulamento do Pix",
		PublishedAt: "2024-07-01",
		URL:         "https://www.bcb.gov.br/estabilidadefinanceira/exibenormativo?tipo=Resolu%C3%A7%C3%A3o+BCB&numero=403",
		Abstract:    "Altera o Regulamento anexo à Resolução BCB nº 1, de 12 de agosto de 2020, para aperfeiçoar as regras do arranjo Pix.",
	},
}

// Monitor orchestrates one run.
type Monitor struct {
	fetcher    Fetcher
	extractor  Extractor
	summarizer Summarizer
	notifier   Notifier
	store      *state.Store
	logger     *zap.Logger

	// DryRun bypasses persisted state and live fetching entirely.
	DryRun bool

	// Delay between successfully processed items. Overridable in tests.
	Delay time.Duration

	now func() time.Time
}

func New(fetcher Fetcher, extractor Extractor, summarizer Summarizer, notifier Notifier, store *state.Store, logger *zap.Logger) *Monitor {
	return &Monitor{
		fetcher:    fetcher,
		extractor:  extractor,
		summarizer: summarizer,
		notifier:   notifier,
		store:      store,
		logger:     logger,
		Delay:      itemDelay,
		now:        time.Now,
	}
}

// Run executes one monitoring cycle. A listing fetch failure aborts the run;
// a failure inside one item's pipeline skips that item and continues, leaving
// its id out of the history so the next scheduled run retries it.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor starting", zap.Bool("dry_run", m.DryRun))

	var items []types.Regulation
	if m.DryRun {
		items = dryRunItems
	} else {
		m.store.Load()

		var err error
		items, err = m.fetcher.FetchLatest(ctx, m.store.SeenIDs())
		if err != nil {
			return fmt.Errorf("fetch latest regulations: %w", err)
		}
	}
	m.logger.Info("candidates fetched", zap.Int("count", len(items)))

	var fresh []types.Regulation
	for _, item := range items {
		if !m.DryRun && m.store.Seen(item.ID) {
			continue
		}
		fresh = append(fresh, item)
	}
	m.logger.Info("new regulations to process", zap.Int("count", len(fresh)))

	// The source lists newest first; notifications go out in publication
	// order, so walk the slice backwards.
	for i := len(fresh) - 1; i >= 0; i-- {
		item := fresh[i]
		if err := m.processItem(ctx, item); err != nil {
			m.logger.Error("item processing failed, skipping",
				zap.String("id", item.ID), zap.Error(err))
			continue
		}

		m.store.MarkSeen(item.ID)
		m.logger.Info("notification sent", zap.String("id", item.ID))

		if err := sleep(ctx, m.Delay); err != nil {
			return err
		}
	}

	if m.DryRun {
		m.logger.Info("dry run complete, state untouched")
		return nil
	}

	if err := m.store.Save(m.now()); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	m.logger.Info("monitor finished")
	return nil
}

func (m *Monitor) processItem(ctx context.Context, item types.Regulation) error {
	m.logger.Info("processing regulation",
		zap.String("id", item.ID),
		zap.String("published_at", item.PublishedAt),
	)

	fullText := m.extractor.FetchFullText(ctx, item.URL)
	if fullText == "" {
		m.logger.Debug("no full text extracted, summarizing from ementa", zap.String("id", item.ID))
	}

	summary, err := m.summarizer.Summarize(ctx, item, fullText)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if err := m.notifier.Notify(ctx, item, summary); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
