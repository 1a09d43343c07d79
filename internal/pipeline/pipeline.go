package pipeline

import (
	"github.com/painscope/opportunity-engine/internal/config"
	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/internal/llm"
	"github.com/painscope/opportunity-engine/internal/source"
	"github.com/painscope/opportunity-engine/pkg/models"
)

// Pipeline owns every enrichment phase. Phases communicate exclusively
// through rows in the store; the struct itself carries no per-tick state,
// so the same Pipeline serves both the cron orchestrator and the manual
// trigger endpoints.
type Pipeline struct {
	store  *db.Store
	reddit *source.RedditClient
	hn     *source.HNClient
	llm    *llm.Client
	cfg    config.Config

	notify func(models.Alert)
}

func New(store *db.Store, reddit *source.RedditClient, hn *source.HNClient, llmClient *llm.Client, cfg config.Config) *Pipeline {
	return &Pipeline{
		store:  store,
		reddit: reddit,
		hn:     hn,
		llm:    llmClient,
		cfg:    cfg,
		notify: func(models.Alert) {},
	}
}

// SetNotifier installs the live alert sink (the websocket hub). Persisted
// alerts are the source of truth; the notifier is best-effort fanout.
func (p *Pipeline) SetNotifier(fn func(models.Alert)) {
	if fn != nil {
		p.notify = fn
	}
}
