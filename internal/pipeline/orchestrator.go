package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// TickReport records what one orchestrator tick did; exposed through the
// trigger-status endpoint.
type TickReport struct {
	RunID      string    `json:"run_id"`
	CronCount  int       `json:"cron_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Phases     []string  `json:"phases"`
	Errors     []string  `json:"errors"`
	Skipped    bool      `json:"skipped"`
}

// RunTick executes one full pipeline tick. Phases run sequentially; a
// phase failure is recorded and later phases still run, since they
// operate on previously persisted rows. Only a storage-unavailable
// condition aborts the tick. Overlapping ticks are excluded by the
// advisory lock in processing_state.
func (p *Pipeline) RunTick(ctx context.Context) (TickReport, error) {
	report := TickReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	if err := p.store.Ping(ctx); err != nil {
		return report, fmt.Errorf("storage unavailable: %w", err)
	}

	acquired, err := p.store.TryAcquireCronLock(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !acquired {
		report.Skipped = true
		log.Printf("[Orchestrator] tick %s skipped: previous run still in progress", report.RunID)
		return report, nil
	}
	defer func() {
		if err := p.store.ReleaseCronLock(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[Orchestrator] release cron lock: %v", err)
		}
	}()

	ctx, cancel := context.WithDeadline(ctx, report.StartedAt.Add(p.cfg.TickDeadline))
	defer cancel()

	cronCount, err := p.store.IncrementState(ctx, "cron_count", 1)
	if err != nil {
		return report, fmt.Errorf("increment cron count: %w", err)
	}
	report.CronCount = cronCount
	log.Printf("[Orchestrator] tick %s starting (cron %d)", report.RunID, cronCount)

	phase := func(name string, fn func() error) {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, name+": deadline reached, phase skipped")
			return
		}
		if err := fn(); err != nil {
			log.Printf("[Orchestrator] phase %s failed: %v", name, err)
			report.Errors = append(report.Errors, name+": "+err.Error())
			return
		}
		report.Phases = append(report.Phases, name)
	}

	// Two ingestion passes with different sort orders widen coverage: top
	// catches the week's loudest threads, new catches what top misses.
	phase("ingest_top", func() error {
		_, err := p.RunIngest(ctx, "top", "week")
		return err
	})
	phase("ingest_new", func() error {
		_, err := p.RunIngest(ctx, "new", "")
		return err
	})

	if cronCount%p.cfg.CompetitorEvery == 0 {
		phase("competitors", func() error {
			_, err := p.RunCompetitorMiner(ctx)
			return err
		})
	}

	phase("filter", func() error {
		_, err := p.RunBinaryFilter(ctx)
		return err
	})
	phase("tagger", func() error {
		_, err := p.RunTagger(ctx)
		return err
	})
	phase("geo", func() error {
		_, err := p.RunGeoTagger(ctx)
		return err
	})
	phase("embedder", func() error {
		_, err := p.RunEmbedder(ctx)
		return err
	})
	phase("clusterer", func() error {
		_, err := p.RunClusterer(ctx)
		return err
	})

	if cronCount%p.cfg.MergeEvery == 0 {
		phase("merger", func() error {
			_, err := p.RunTopicMerger(ctx, true)
			return err
		})
	}

	phase("synthesizer", func() error {
		_, err := p.RunSynthesizer(ctx)
		return err
	})
	phase("scorer", func() error {
		_, err := p.RunScorer(ctx)
		return err
	})
	phase("trends", func() error {
		_, err := p.RunTrendSnapshotter(ctx, time.Now())
		return err
	})

	if cronCount%p.cfg.MarketEvery == 0 {
		phase("market", func() error {
			_, err := p.RunMarketEstimator(ctx)
			return err
		})
	} else {
		phase("features", func() error {
			_, err := p.RunFeatureExtractor(ctx)
			return err
		})
	}

	phase("outreach", func() error {
		_, err := p.RunOutreachBuilder(ctx)
		return err
	})
	phase("alerts", func() error {
		_, err := p.RunAlertChecks(ctx, time.Now())
		return err
	})

	report.FinishedAt = time.Now()
	log.Printf("[Orchestrator] tick %s done in %s: %d phases, %d errors",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Second),
		len(report.Phases), len(report.Errors))
	return report, nil
}

// RunForever drives ticks on the configured interval until the context is
// cancelled. The first tick fires immediately.
func (p *Pipeline) RunForever(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.CronInterval)
	defer ticker.Stop()

	for {
		if _, err := p.RunTick(ctx); err != nil {
			log.Printf("[Orchestrator] tick aborted: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
