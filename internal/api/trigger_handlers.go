package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Manual phase triggers. Each trigger starts the phase in a background
// goroutine detached from the HTTP request and returns a job ID
// immediately; /api/trigger/status reports the outcome later.

const jobHistoryLimit = 50

type triggerJob struct {
	ID         string `json:"id"`
	Phase      string `json:"phase"`
	Status     string `json:"status"` // running / completed / failed
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type jobTracker struct {
	mu   sync.Mutex
	jobs map[string]*triggerJob
	// insertion order, oldest first, for history trimming
	order []string
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[string]*triggerJob)}
}

func (t *jobTracker) start(phase string) *triggerJob {
	job := &triggerJob{
		ID:        uuid.NewString(),
		Phase:     phase,
		Status:    "running",
		StartedAt: time.Now().UnixMilli(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.order = append(t.order, job.ID)
	for len(t.order) > jobHistoryLimit {
		delete(t.jobs, t.order[0])
		t.order = t.order[1:]
	}
	t.mu.Unlock()
	return job
}

func (t *jobTracker) finish(id string, detail string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.FinishedAt = time.Now().UnixMilli()
	job.Detail = detail
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
	} else {
		job.Status = "completed"
	}
}

func (t *jobTracker) snapshot() []triggerJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]triggerJob, 0, len(t.order))
	// newest first
	for i := len(t.order) - 1; i >= 0; i-- {
		out = append(out, *t.jobs[t.order[i]])
	}
	return out
}

// handleTrigger kicks off a single pipeline phase (or a full tick) on
// demand. The phase runs with a fresh background context so it outlives
// the HTTP request.
func (h *APIHandler) handleTrigger(c *gin.Context) {
	phase := c.Param("phase")
	run, ok := h.phaseRunner(phase)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("unknown phase %q", phase)})
		return
	}

	job := h.jobs.start(phase)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		log.Printf("[Trigger] phase %s started (job %s)", phase, job.ID)
		detail, err := run(ctx)
		h.jobs.finish(job.ID, detail, err)
		if err != nil {
			log.Printf("[Trigger] phase %s failed: %v", phase, err)
		} else {
			log.Printf("[Trigger] phase %s completed: %s", phase, detail)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"success": true, "job_id": job.ID, "phase": phase})
}

// phaseRunner maps a trigger phase name onto its pipeline entrypoint.
func (h *APIHandler) phaseRunner(phase string) (func(context.Context) (string, error), bool) {
	switch phase {
	case "ingest":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunIngest(ctx, "new", "")
			return fmt.Sprintf("posts=%d comments=%d hn=%d", res.PostsNew, res.CommentsNew, res.HNComments), err
		}, true
	case "extract":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunBinaryFilter(ctx)
			return fmt.Sprintf("processed=%d accepted=%d defaulted=%d", res.Processed, res.Accepted, res.Defaulted), err
		}, true
	case "tag":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunTagger(ctx)
			return fmt.Sprintf("tagged=%d", res.Tagged), err
		}, true
	case "cluster":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunClusterer(ctx)
			return fmt.Sprintf("assigned=%d created=%d", res.Assigned, res.NewClusters), err
		}, true
	case "synthesize":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunSynthesizer(ctx)
			return fmt.Sprintf("synthesized=%d", res.Synthesized), err
		}, true
	case "score":
		return func(ctx context.Context) (string, error) {
			n, err := h.pipe.RunScorer(ctx)
			return fmt.Sprintf("scored=%d", n), err
		}, true
	case "merge":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunTopicMerger(ctx, true)
			merged := res.RuleMerges + res.LLMMerges + res.CentroidMerges
			return fmt.Sprintf("merged=%d renamed=%d", merged, res.RecordsRenamed), err
		}, true
	case "snapshot-trends":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunTrendSnapshotter(ctx, time.Now())
			return fmt.Sprintf("topics=%d spikes=%d", res.Topics, res.Spikes), err
		}, true
	case "estimate-markets":
		return func(ctx context.Context) (string, error) {
			n, err := h.pipe.RunMarketEstimator(ctx)
			return fmt.Sprintf("estimated=%d", n), err
		}, true
	case "extract-features":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunFeatureExtractor(ctx)
			return fmt.Sprintf("clusters=%d features=%d landings=%d", res.Clusters, res.Features, res.Landings), err
		}, true
	case "mine-competitors":
		return func(ctx context.Context) (string, error) {
			res, err := h.pipe.RunCompetitorMiner(ctx)
			return fmt.Sprintf("mentions=%d gaps=%d", res.Mentions, res.FeatureGaps), err
		}, true
	case "geo-analyze":
		return func(ctx context.Context) (string, error) {
			n, err := h.pipe.RunGeoTagger(ctx)
			return fmt.Sprintf("tagged=%d", n), err
		}, true
	case "check-alerts":
		return func(ctx context.Context) (string, error) {
			n, err := h.pipe.RunAlertChecks(ctx, time.Now())
			return fmt.Sprintf("raised=%d", n), err
		}, true
	case "build-outreach":
		return func(ctx context.Context) (string, error) {
			n, err := h.pipe.RunOutreachBuilder(ctx)
			return fmt.Sprintf("contacts=%d", n), err
		}, true
	case "full":
		return func(ctx context.Context) (string, error) {
			report, err := h.pipe.RunTick(ctx)
			return fmt.Sprintf("cron=%d phases=%d errors=%d", report.CronCount, len(report.Phases), len(report.Errors)), err
		}, true
	case "reset":
		return func(ctx context.Context) (string, error) {
			return "derived data cleared", h.store.ResetDerived(ctx)
		}, true
	}
	return nil, false
}

func (h *APIHandler) handleTriggerStatus(c *gin.Context) {
	jobs := h.jobs.snapshot()
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}
